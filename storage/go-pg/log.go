package gopg

import (
	"github.com/go-pg/pg"
	"github.com/go-pg/pg/types"

	mailer "github.com/kmcoleman/bajarun-mailer"
)

func NewLogRepository(db *pg.DB) mailer.LogRepository {
	return &logRepository{
		db: db,
	}
}

type logRepository struct {
	db *pg.DB
}

type logWrapper struct {
	TableName struct{} `sql:"mailer_send_log,alias:msl" json:"-"`

	*mailer.LogEntry
}

func (repo *logRepository) Create(entry *mailer.LogEntry) error {
	return repo.db.Insert(&logWrapper{LogEntry: entry})
}

func (repo *logRepository) Matching(criteria mailer.LogCriteria) ([]mailer.LogEntry, int, error) {
	var wrapped []logWrapper
	entries := make([]mailer.LogEntry, 0)

	builder := repo.db.Model(&wrapped).
		Offset(criteria.Offset).
		Limit(criteria.Limit)

	if criteria.TriggerID != "" {
		builder.Where("trigger_id = ?", criteria.TriggerID)
	}

	if criteria.TemplateID != "" {
		builder.Where("template_id = ?", criteria.TemplateID)
	}

	if criteria.Recipient != "" {
		builder.Where("LOWER(recipient) = LOWER(?)", criteria.Recipient)
	}

	if criteria.Status != "" {
		builder.Where("status = ?", criteria.Status)
	}

	if !criteria.SentAfter.IsZero() {
		builder.Where("sent_at >= ?", criteria.SentAfter)
	}

	if !criteria.SentBefore.IsZero() {
		builder.Where("sent_at <= ?", criteria.SentBefore)
	}

	if len(criteria.Sorting) == 0 {
		builder.Order("sent_at DESC")
	}

	for col, dir := range criteria.Sorting {
		builder.OrderExpr("%s %s", types.F(col), types.Q(dir))
	}

	count, err := builder.SelectAndCount()
	if err != nil && err != pg.ErrNoRows {
		return entries, 0, err
	}

	for _, e := range wrapped {
		entries = append(entries, *e.LogEntry)
	}

	return entries, count, nil
}
