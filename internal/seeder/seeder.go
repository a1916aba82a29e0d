package seeder

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/jaswdr/faker"
	"github.com/sirupsen/logrus"

	"github.com/sheetstore/sheetstore/internal/schema"
	"github.com/sheetstore/sheetstore/internal/store"
	"github.com/sheetstore/sheetstore/pkg/models"
)

// Seeder fills tables with generated records, for demo databases and
// manual testing. Values are valid for their field kind, and foreign keys
// point at rows already seeded into the target table.
type Seeder struct {
	Engine       *store.Engine
	Faker        faker.Faker
	NumRecords   int
	FailedTables map[string]bool
	Logger       *logrus.Logger

	// display names inserted per table, the candidate pool for foreign keys
	inserted map[string][]string
}

// New creates a seeder inserting numRecords records per table
func New(engine *store.Engine, numRecords int, logger *logrus.Logger) *Seeder {
	return &Seeder{
		Engine:       engine,
		Faker:        faker.New(),
		NumRecords:   numRecords,
		FailedTables: make(map[string]bool),
		Logger:       logger,
		inserted:     make(map[string][]string),
	}
}

// SeedDatabase populates every table of the model in foreign-key
// dependency order. A failing table is recorded and the run continues.
func (s *Seeder) SeedDatabase() bool {
	success := true
	for _, table := range schema.TableOrder(s.Engine.Model, s.Logger) {
		if err := s.populateTable(table); err != nil {
			s.Logger.Errorf("Error seeding table %s: %v", table.Name, err)
			s.FailedTables[table.Name] = true
			success = false
		}
	}
	return success
}

func (s *Seeder) populateTable(table *models.Table) error {
	s.Logger.Infof("Seeding table: %s", table.Name)

	count := 0
	for i := 0; i < s.NumRecords; i++ {
		values, err := s.generateValues(table)
		if err != nil {
			return err
		}
		record, err := models.NewRecord(table, values)
		if err != nil {
			return err
		}
		// or-ignore: colliding display names are harmless here
		if err := s.Engine.CreateRecordOrIgnore(record); err != nil {
			return err
		}
		s.inserted[table.Name] = append(s.inserted[table.Name], record.DisplayName)
		count++
	}

	s.Logger.Infof("Seeded table %s with %d records", table.Name, count)
	return nil
}

func (s *Seeder) generateValues(table *models.Table) (map[*models.Field]interface{}, error) {
	values := make(map[*models.Field]interface{})
	for _, field := range table.Fields {
		if field.Automatic {
			continue
		}
		if field.IsForeignKey() {
			candidate, err := s.foreignKeyValue(field)
			if err != nil {
				return nil, err
			}
			values[field] = candidate
			continue
		}
		values[field] = s.generateValue(field)
	}
	return values, nil
}

// foreignKeyValue picks a random display name among the rows already
// seeded into the target table
func (s *Seeder) foreignKeyValue(field *models.Field) (interface{}, error) {
	candidates := s.inserted[field.ForeignKeyTable.Name]
	if len(candidates) == 0 {
		records, err := s.Engine.GetRecords(field.ForeignKeyTable, nil, "")
		if err != nil {
			return nil, err
		}
		for _, record := range records {
			candidates = append(candidates, record.DisplayName)
		}
		s.inserted[field.ForeignKeyTable.Name] = candidates
	}
	if len(candidates) == 0 {
		if field.Mandatory {
			return nil, fmt.Errorf("no candidate rows in %s for mandatory foreign key %s",
				field.ForeignKeyTable.Name, field)
		}
		return nil, nil
	}
	return candidates[rand.Intn(len(candidates))], nil
}

// generateValue produces a value valid for the field's kind. Text fields
// get name-aware values so seeded data reads naturally.
func (s *Seeder) generateValue(field *models.Field) interface{} {
	switch field.Kind() {
	case models.KindInteger:
		return int64(s.Faker.IntBetween(0, 10000))
	case models.KindBoolean:
		return rand.Intn(2) == 1
	case models.KindDate:
		days := rand.Intn(365 * 5)
		return time.Now().AddDate(0, 0, -days).Format(models.DateFormat)
	case models.KindDuration:
		return fmt.Sprintf("%d:%02d:%02d", rand.Intn(12), rand.Intn(60), rand.Intn(60))
	case models.KindFilepath:
		return "/tmp/" + s.Faker.File().FilenameWithExtension()
	default:
		return s.generateText(field)
	}
}

func (s *Seeder) generateText(field *models.Field) string {
	name := strings.ToLower(field.Name)
	switch {
	case strings.Contains(name, "email"):
		return s.Faker.Internet().Email()
	case strings.Contains(name, "url") || strings.Contains(name, "website"):
		return s.Faker.Internet().URL()
	case strings.Contains(name, "name"):
		return s.Faker.Person().Name()
	case strings.Contains(name, "title"):
		return s.Faker.Lorem().Sentence(4)
	case strings.Contains(name, "description") || strings.Contains(name, "summary") || strings.Contains(name, "note"):
		return s.Faker.Lorem().Sentence(10)
	case field.PartOfDisplayName:
		// keep display parts distinctive so generated display names
		// rarely collide
		return s.Faker.Lorem().Word() + " " + s.Faker.RandomStringWithLength(6)
	default:
		return s.Faker.Lorem().Word()
	}
}
