package models

// Group is a named category of tracks.
type Group struct {
	ID          int64  `db:"_id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Order       int    `db:"order"`
}

// NewGroup returns an unsaved group.
func NewGroup(name string) *Group {
	return &Group{Name: name}
}

// IsStored reports whether the group has been assigned an id.
func (g *Group) IsStored() bool {
	return g.ID != 0
}
