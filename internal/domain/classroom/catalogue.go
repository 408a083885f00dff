package classroom

// ══════════════════════════════════════════════════════════════════════════════
// CATEGORIES
// ══════════════════════════════════════════════════════════════════════════════

// Category - одна из пяти фиксированных категорий наблюдений.
type Category string

const (
	CategoryResponsibility Category = "Verantwortung"
	CategoryConduct        Category = "Arbeits- und Sozialverhalten"
	CategoryPerformance    Category = "Leistung im Fach"
	CategoryInformative    Category = "Informativ"
	CategoryOther          Category = "Sonstige Beobachtungen"
)

// Categories - все категории в порядке отображения.
var Categories = []Category{
	CategoryResponsibility,
	CategoryConduct,
	CategoryPerformance,
	CategoryInformative,
	CategoryOther,
}

// IsValid проверяет, что категория из списка.
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// IsFreeText - категория без каталога, наблюдение вводится вручную.
func (c Category) IsFreeText() bool {
	return len(catalogue[c]) == 0
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOGUE
// ══════════════════════════════════════════════════════════════════════════════

// CatalogueItem - готовое наблюдение с его оценкой.
type CatalogueItem struct {
	Text     string   `json:"text"`
	Severity Severity `json:"severity"`
}

// catalogue - статическая таблица, не производные данные.
var catalogue = map[Category][]CatalogueItem{
	CategoryResponsibility: {
		{Text: "Hausaufgaben fehlen", Severity: -1},
		{Text: "Fehlendes Unterrichtsmaterial", Severity: -1},
	},
	CategoryConduct: {
		{Text: "Unpassende Wortwahl", Severity: -1},
		{Text: "Unangemessenes Verhalten", Severity: -1},
		{Text: "Beteiligt sich nicht am Unterricht", Severity: -1},
		{Text: "Ignoriert Anweisungen", Severity: -1},
		{Text: "Mangelnde Ordnung (Heft, Tisch, etc)", Severity: -1},
		{Text: "Zu spät zum Unterricht erschienen", Severity: -1},
		{Text: "Unhöfliches Verhalten gegenüber Mitschülern/Lehrern", Severity: -1},
		{Text: "Unterbricht den Lehrer/Mitschüler", Severity: -1},
		{Text: "Engagiert sich aktiv im Unterricht", Severity: 1},
		{Text: "Freundlicher und respektvoller Umgang mit Mitschülern/Lehrern", Severity: 1},
		{Text: "Beachtet die Klassenregeln", Severity: 1},
		{Text: "Verhalten entspricht den Erwartungen", Severity: 1},
	},
	CategoryPerformance: {
		{Text: "Sehr gute schriftliche Leistungen/Präsentation im Unterricht", Severity: 1},
		{Text: "Ausgezeichnete Leistung (volle Punktzahl)", Severity: 1},
		{Text: "Mangelhafte Leistung (niedrige Punktzahl)", Severity: -1},
		{Text: "Unfaire Methoden bei der Prüfung", Severity: -1},
		{Text: "Aufgaben werden nicht rechtzeitig abgeschlossen", Severity: -1},
		{Text: "Abgegebene Hausaufgabe ist unvollständig", Severity: -1},
		{Text: "Hat Schwierigkeiten, den Stoff vollständig zu verstehen", Severity: -1},
	},
	CategoryInformative: {
		{Text: "Häufige Anfragen für Toilettenpausen", Severity: 0},
		{Text: "Häufige Anfragen, zur Krankenschwester zu gehen", Severity: 0},
		{Text: "Häufige Abwesenheit", Severity: 0},
		{Text: "Wirkt häufig müde", Severity: 0},
		{Text: "Musste den Unterrichtsraum verlassen", Severity: 0},
	},
	CategoryOther: {},
}

// CatalogueFor возвращает копию списка наблюдений категории.
func CatalogueFor(c Category) []CatalogueItem {
	items := catalogue[c]
	out := make([]CatalogueItem, len(items))
	copy(out, items)
	return out
}

// LookupObservation ищет наблюдение в каталоге категории.
func LookupObservation(c Category, text string) (CatalogueItem, bool) {
	for _, item := range catalogue[c] {
		if item.Text == text {
			return item, true
		}
	}
	return CatalogueItem{}, false
}

// CatalogueSection - категория вместе с её наблюдениями (для API).
type CatalogueSection struct {
	Category Category        `json:"category"`
	FreeText bool            `json:"freeText"`
	Items    []CatalogueItem `json:"items"`
}

// Catalogue возвращает весь каталог в порядке категорий.
func Catalogue() []CatalogueSection {
	out := make([]CatalogueSection, 0, len(Categories))
	for _, c := range Categories {
		out = append(out, CatalogueSection{
			Category: c,
			FreeText: c.IsFreeText(),
			Items:    CatalogueFor(c),
		})
	}
	return out
}
