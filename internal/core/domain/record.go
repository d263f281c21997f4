package domain

// Record is the store-facing representation of a domain object.
// Records are produced and consumed only by a DataAccessObject and the
// converter.
type Record interface {
	ID() int
	SetID(id int)
	IsDeleted() bool
	SetDeleted(deleted bool)
}

// DataObject is the embeddable base of every record.
type DataObject struct {
	RecordID int  `json:"id" yaml:"id"`
	Deleted  bool `json:"deleted,omitempty" yaml:"deleted,omitempty"`
}

// ID returns the record id.
func (d *DataObject) ID() int { return d.RecordID }

// SetID sets the record id.
func (d *DataObject) SetID(id int) { d.RecordID = id }

// IsDeleted reports whether the record is marked deleted.
func (d *DataObject) IsDeleted() bool { return d.Deleted }

// SetDeleted marks or unmarks the record as deleted.
func (d *DataObject) SetDeleted(deleted bool) { d.Deleted = deleted }
