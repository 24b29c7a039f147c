package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxLeadNotes is the column limit for Lead.Notes, in characters.
const MaxLeadNotes = 250

// Interest categories
const (
	InterestLoteamentos = "Loteamentos"
	InterestConstrutora = "Construtora"
	InterestOutros      = "Outros"
)

// Lead represents a contact and its qualification status.
type Lead struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Phone     string    `json:"phone" gorm:"column:telefone;size:20;not null;uniqueIndex"` // session id
	Name      *string   `json:"name,omitempty" gorm:"column:nome;size:100"`
	Interest  *string   `json:"interest,omitempty" gorm:"column:interesse;size:50;index"`
	Qualified bool      `json:"qualified" gorm:"column:qualificado;not null;default:false;index"`
	Notes     *string   `json:"notes,omitempty" gorm:"column:notas;size:250"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Lead) TableName() string {
	return "leads"
}

// BeforeSave enforces the notes limit.
func (l *Lead) BeforeSave(tx *gorm.DB) error {
	if l.Notes != nil {
		n := TruncateNotes(*l.Notes)
		l.Notes = &n
	}
	return nil
}

// LeadUpdate carries the fields to change on upsert. Nil fields are left untouched.
type LeadUpdate struct {
	Phone     string
	Name      *string
	Interest  *string
	Qualified *bool
	Notes     *string
}

// Columns returns the column assignments for a gorm update.
func (u *LeadUpdate) Columns() map[string]any {
	cols := map[string]any{}
	if u.Name != nil {
		cols["nome"] = *u.Name
	}
	if u.Interest != nil {
		cols["interesse"] = *u.Interest
	}
	if u.Qualified != nil {
		cols["qualificado"] = *u.Qualified
	}
	if u.Notes != nil {
		cols["notas"] = TruncateNotes(*u.Notes)
	}
	return cols
}

// Apply copies the non-nil fields onto l.
func (u *LeadUpdate) Apply(l *Lead) {
	if u.Name != nil {
		name := *u.Name
		l.Name = &name
	}
	if u.Interest != nil {
		interest := *u.Interest
		l.Interest = &interest
	}
	if u.Qualified != nil {
		l.Qualified = *u.Qualified
	}
	if u.Notes != nil {
		notes := TruncateNotes(*u.Notes)
		l.Notes = &notes
	}
}

// TruncateNotes cuts s to MaxLeadNotes characters (runes, not bytes).
func TruncateNotes(s string) string {
	r := []rune(s)
	if len(r) <= MaxLeadNotes {
		return s
	}
	return string(r[:MaxLeadNotes])
}
