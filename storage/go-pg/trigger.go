package gopg

import (
	"time"

	"github.com/go-pg/pg"
	"github.com/go-pg/pg/types"

	mailer "github.com/kmcoleman/bajarun-mailer"
)

func NewTriggerRepository(db *pg.DB) mailer.TriggerRepository {
	return &triggerRepository{
		db: db,
	}
}

type triggerRepository struct {
	db *pg.DB
}

type triggerWrapper struct {
	TableName struct{} `sql:"mailer_triggers,alias:mtr" json:"-"`

	*mailer.Trigger
}

func (repo *triggerRepository) Get(id string) (mailer.Trigger, error) {
	wrapped := &triggerWrapper{
		Trigger: &mailer.Trigger{},
	}

	if err := repo.db.Model(wrapped).Where("id = ?", id).Select(); err != nil {
		if err == pg.ErrNoRows {
			return *wrapped.Trigger, mailer.TriggerNotFoundErr
		}

		return *wrapped.Trigger, err
	}

	return *wrapped.Trigger, nil
}

func (repo *triggerRepository) FindForEvent(collection string, event mailer.EventKind) ([]mailer.Trigger, error) {
	var wrapped []triggerWrapper
	triggers := make([]mailer.Trigger, 0)

	err := repo.db.Model(&wrapped).
		Where("collection = ? AND event = ? AND enabled = true", collection, event).
		Order("created_at ASC").
		Select()
	if err != nil && err != pg.ErrNoRows {
		return triggers, err
	}

	for _, t := range wrapped {
		triggers = append(triggers, *t.Trigger)
	}

	return triggers, nil
}

func (repo *triggerRepository) Create(trigger *mailer.Trigger) error {
	return repo.db.Insert(&triggerWrapper{Trigger: trigger})
}

func (repo *triggerRepository) Update(trigger *mailer.Trigger) error {
	trigger.UpdatedAt = time.Now()

	return repo.db.Update(&triggerWrapper{Trigger: trigger})
}

func (repo *triggerRepository) Delete(trigger *mailer.Trigger) error {
	return repo.db.Delete(&triggerWrapper{Trigger: trigger})
}

func (repo *triggerRepository) Matching(criteria mailer.TriggerCriteria) ([]mailer.Trigger, int, error) {
	var wrapped []triggerWrapper
	triggers := make([]mailer.Trigger, 0)

	builder := repo.db.Model(&wrapped).
		Offset(criteria.Offset).
		Limit(criteria.Limit)

	if criteria.Collection != "" {
		builder.Where("collection = ?", criteria.Collection)
	}

	if criteria.Event != "" {
		builder.Where("event = ?", criteria.Event)
	}

	if criteria.Enabled != nil {
		builder.Where("enabled = ?", *criteria.Enabled)
	}

	for col, dir := range criteria.Sorting {
		builder.OrderExpr("%s %s", types.F(col), types.Q(dir))
	}

	count, err := builder.SelectAndCount()
	if err != nil && err != pg.ErrNoRows {
		return triggers, 0, err
	}

	for _, t := range wrapped {
		triggers = append(triggers, *t.Trigger)
	}

	return triggers, count, nil
}
