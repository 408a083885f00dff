// Package classroom содержит доменную модель Concordia - журнала учителя.
//
// Пакет определяет:
//
//   - Сущности: ClassGroup, Student, ScheduleItem, ParticipationLog, BehaviorIncident
//   - Агрегат AppState - единственный документ, который сохраняется целиком
//   - Каталог наблюдений (Category -> список (текст, оценка))
//   - IncidentDraft - правила формы ввода наблюдения
//   - Seed-состояние, которое используется, если сохранённых данных нет
//   - Интерфейс BlobStorage (реализации в infrastructure/persistence)
//
// # Архитектурные принципы
//
//  1. Состояние иммутабельно: все мутации (WithClass, WithoutStudent, ...)
//     возвращают новый AppState и не трогают получателя
//  2. JSON-имена полей - это формат хранения, менять их нельзя
//  3. Ссылочная целостность проверяется только в момент записи;
//     логи удалённых учеников остаются "осиротевшими"
//
// # Пример
//
//	state := classroom.SeedState()
//	class := classroom.ClassGroup{ID: classroom.NewID(), Name: "Physik 9c", Color: classroom.RandomColor()}
//	state = state.WithClass(class)
//	state = state.WithoutClass("c1") // каскадно удаляет учеников и расписание
package classroom
