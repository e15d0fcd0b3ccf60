package models

import "time"

// Result is the published permutation for one period. The ordered tuple is
// mirrored into per-position columns so position queries stay on plain SQL.
type Result struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	Period int64  `gorm:"uniqueIndex;not null"`

	Position1  int `gorm:"type:smallint;not null"`
	Position2  int `gorm:"type:smallint;not null"`
	Position3  int `gorm:"type:smallint;not null"`
	Position4  int `gorm:"type:smallint;not null"`
	Position5  int `gorm:"type:smallint;not null"`
	Position6  int `gorm:"type:smallint;not null"`
	Position7  int `gorm:"type:smallint;not null"`
	Position8  int `gorm:"type:smallint;not null"`
	Position9  int `gorm:"type:smallint;not null"`
	Position10 int `gorm:"type:smallint;not null"`

	Strategy  string    `gorm:"type:varchar(30);not null;default:'normal'"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Result) TableName() string {
	return "results"
}

// Positions returns the ordered tuple.
func (r *Result) Positions() [10]int {
	return [10]int{
		r.Position1, r.Position2, r.Position3, r.Position4, r.Position5,
		r.Position6, r.Position7, r.Position8, r.Position9, r.Position10,
	}
}

// SetPositions mirrors the tuple into the per-position columns.
func (r *Result) SetPositions(p [10]int) {
	r.Position1, r.Position2, r.Position3, r.Position4, r.Position5 = p[0], p[1], p[2], p[3], p[4]
	r.Position6, r.Position7, r.Position8, r.Position9, r.Position10 = p[5], p[6], p[7], p[8], p[9]
}
