package models

// DefaultIcon is assigned to tracks created without an explicit icon.
const DefaultIcon = "glyphicons_001_leaf"

// Track is a habit being tracked. A zero ID means the track has not been stored yet.
type Track struct {
	ID                     int64  `db:"_id"`
	Name                   string `db:"name"`
	Description            string `db:"description"`
	Enabled                bool   `db:"enabled"`
	Order                  int    `db:"order"`
	Icon                   string `db:"icon"`
	MultipleEntriesEnabled bool   `db:"multiple_entries_enabled"`
	IsSectionHeader        bool   `db:"is_section_header"`
}

// NewTrack returns an enabled, unsaved track with the default icon.
func NewTrack(name, description string) *Track {
	return &Track{
		Name:        name,
		Description: description,
		Enabled:     true,
		Icon:        DefaultIcon,
	}
}

// IsStored reports whether the track has been assigned an id.
func (t *Track) IsStored() bool {
	return t.ID != 0
}
