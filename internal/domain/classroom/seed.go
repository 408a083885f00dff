package classroom

// StorageKey - ключ, под которым хранится документ журнала.
const StorageKey = "concordia_data_v1"

// SeedState возвращает начальное состояние: две группы, три ученика,
// три урока и пустые журналы. Каждый вызов отдаёт новую копию.
func SeedState() AppState {
	return AppState{
		Classes: []ClassGroup{
			{ID: "c1", Name: "Geschichte 7b", Color: "bg-blue-500"},
			{ID: "c2", Name: "Mathe 5a", Color: "bg-green-500"},
		},
		Students: []Student{
			{ID: "s1", Name: "Leon Müller", ClassID: "c1"},
			{ID: "s2", Name: "Mia Schmidt", ClassID: "c1"},
			{ID: "s3", Name: "Elias Weber", ClassID: "c2"},
		},
		Schedule: []ScheduleItem{
			{ID: "sch1", ClassID: "c1", DayOfWeek: 1, StartTime: "08:00", EndTime: "09:30"},
			{ID: "sch2", ClassID: "c1", DayOfWeek: 3, StartTime: "10:00", EndTime: "11:30"},
			{ID: "sch3", ClassID: "c2", DayOfWeek: 2, StartTime: "08:00", EndTime: "09:30"},
		},
		ParticipationLogs: []ParticipationLog{},
		BehaviorLogs:      []BehaviorIncident{},
	}
}
