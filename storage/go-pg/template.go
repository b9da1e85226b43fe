package gopg

import (
	"time"

	"github.com/go-pg/pg"
	"github.com/go-pg/pg/types"

	mailer "github.com/kmcoleman/bajarun-mailer"
)

func NewTemplateRepository(db *pg.DB) mailer.TemplateRepository {
	return &templateRepository{
		db: db,
	}
}

type templateRepository struct {
	db *pg.DB
}

type templateWrapper struct {
	TableName struct{} `sql:"mailer_templates,alias:mt" json:"-"`

	*mailer.Template
}

func (repo *templateRepository) Get(id string) (mailer.Template, error) {
	wrapped := &templateWrapper{
		Template: &mailer.Template{},
	}

	if err := repo.db.Model(wrapped).Where("id = ?", id).Select(); err != nil {
		if err == pg.ErrNoRows {
			return *wrapped.Template, mailer.TemplateNotFoundErr
		}

		return *wrapped.Template, err
	}

	return *wrapped.Template, nil
}

func (repo *templateRepository) Create(template *mailer.Template) error {
	return repo.db.Insert(&templateWrapper{Template: template})
}

func (repo *templateRepository) Update(template *mailer.Template) error {
	template.UpdatedAt = time.Now()

	return repo.db.Update(&templateWrapper{Template: template})
}

func (repo *templateRepository) Delete(template *mailer.Template) error {
	return repo.db.Delete(&templateWrapper{Template: template})
}

func (repo *templateRepository) Matching(criteria mailer.TemplateCriteria) ([]mailer.Template, int, error) {
	var wrapped []templateWrapper
	templates := make([]mailer.Template, 0)

	builder := repo.db.Model(&wrapped).
		Offset(criteria.Offset).
		Limit(criteria.Limit)

	if criteria.Name != "" {
		builder.Where("name like ?", criteria.Name+"%")
	}

	for col, dir := range criteria.Sorting {
		builder.OrderExpr("%s %s", types.F(col), types.Q(dir))
	}

	count, err := builder.SelectAndCount()
	if err != nil && err != pg.ErrNoRows {
		return templates, 0, err
	}

	for _, t := range wrapped {
		templates = append(templates, *t.Template)
	}

	return templates, count, nil
}
