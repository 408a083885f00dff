package classroom

// ══════════════════════════════════════════════════════════════════════════════
// STATE TRANSITIONS
// Каждая функция возвращает новый AppState; получатель не изменяется,
// поэтому их можно безопасно передавать в Store.Update.
// ══════════════════════════════════════════════════════════════════════════════

// WithClass добавляет группу.
func (s AppState) WithClass(c ClassGroup) AppState {
	next := s.Clone()
	next.Classes = append(next.Classes, c)
	return next
}

// WithoutClass удаляет группу вместе с её учениками и расписанием.
// Журналы оценок и наблюдений не трогаются.
func (s AppState) WithoutClass(classID string) AppState {
	next := s.Clone()
	next.Classes = filter(next.Classes, func(c ClassGroup) bool { return c.ID != classID })
	next.Students = filter(next.Students, func(st Student) bool { return st.ClassID != classID })
	next.Schedule = filter(next.Schedule, func(it ScheduleItem) bool { return it.ClassID != classID })
	return next
}

// WithStudent добавляет ученика.
func (s AppState) WithStudent(st Student) AppState {
	next := s.Clone()
	next.Students = append(next.Students, st)
	return next
}

// WithoutStudent удаляет только ученика, его записи в журналах остаются.
func (s AppState) WithoutStudent(studentID string) AppState {
	next := s.Clone()
	next.Students = filter(next.Students, func(st Student) bool { return st.ID != studentID })
	return next
}

// WithoutStudentLogs удаляет все оценки и наблюдения ученика.
func (s AppState) WithoutStudentLogs(studentID string) AppState {
	next := s.Clone()
	next.ParticipationLogs = filter(next.ParticipationLogs, func(l ParticipationLog) bool { return l.StudentID != studentID })
	next.BehaviorLogs = filter(next.BehaviorLogs, func(b BehaviorIncident) bool { return b.StudentID != studentID })
	return next
}

// WithScheduleItem добавляет урок в расписание.
func (s AppState) WithScheduleItem(it ScheduleItem) AppState {
	next := s.Clone()
	next.Schedule = append(next.Schedule, it)
	return next
}

// WithoutScheduleItem удаляет урок из расписания.
func (s AppState) WithoutScheduleItem(itemID string) AppState {
	next := s.Clone()
	next.Schedule = filter(next.Schedule, func(it ScheduleItem) bool { return it.ID != itemID })
	return next
}

// WithParticipation добавляет пачку оценок.
func (s AppState) WithParticipation(logs ...ParticipationLog) AppState {
	next := s.Clone()
	next.ParticipationLogs = append(next.ParticipationLogs, logs...)
	return next
}

// WithIncident добавляет наблюдение.
func (s AppState) WithIncident(b BehaviorIncident) AppState {
	next := s.Clone()
	next.BehaviorLogs = append(next.BehaviorLogs, b)
	return next
}

func filter[T any](in []T, keep func(T) bool) []T {
	out := in[:0]
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
