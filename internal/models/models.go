package models

import "time"

// TimestampLayout is the text form of stored timestamps. Date bounds on a
// collection compare lexicographically against it.
const TimestampLayout = "2006-01-02 15:04:05"

// ItemType classifies a snippet
type ItemType string

const (
	ItemText ItemType = "TEXT"
	ItemURL  ItemType = "URL"
	ItemCode ItemType = "CODE"
	ItemPath ItemType = "PATH"
)

// ItemTypes lists the accepted item types in display order
var ItemTypes = []ItemType{ItemText, ItemURL, ItemCode, ItemPath}

// Valid reports whether t is one of ItemTypes
func (t ItemType) Valid() bool {
	for _, v := range ItemTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Category groups items
type Category struct {
	ID        int64
	Name      string
	Icon      string
	CreatedAt time.Time
}

// Item is a stored snippet. Tags is the delimited string exactly as stored.
type Item struct {
	ID          int64
	CategoryID  int64
	Label       string
	Content     string
	Tags        string
	ItemType    ItemType
	IsFavorite  bool
	IsSensitive bool
	IsActive    bool
	IsArchived  bool
	CreatedAt   time.Time
	LastUsed    *time.Time // nil if never used
}

// TagGroup is a named, reusable bundle of tags
type TagGroup struct {
	ID          int64
	Name        string
	Description string
	Color       string
	Icon        string
	Tags        []string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Filter is the criteria payload of a collection. Nil pointers and empty
// strings leave the corresponding field unconstrained.
type Filter struct {
	TagsInclude      string
	TagsExclude      string
	CategoryID       *int64
	ItemType         *ItemType
	IsFavorite       *bool
	IsSensitive      *bool
	IsActiveFilter   *bool
	IsArchivedFilter *bool
	SearchText       string
	DateFrom         string
	DateTo           string
}

// Collection is a saved filter ("smart collection"), evaluated on every read
type Collection struct {
	ID          int64
	Name        string
	Description string
	Icon        string
	Color       string
	IsActive    bool
	Filter      Filter
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CollectionCount pairs a collection with its live match count. Count is -1
// and Err is set when the collection could not be evaluated.
type CollectionCount struct {
	Collection
	Count int
	Err   error
}

// TagGroupUsage pairs a tag group with the number of items using its tags
type TagGroupUsage struct {
	TagGroup
	Usage int
}

// CollectionStats summarizes the saved collections
type CollectionStats struct {
	Total    int
	Active   int
	Inactive int
}

// TagGroupStats summarizes the tag catalog. UniqueTags covers active groups only.
type TagGroupStats struct {
	Total      int
	Active     int
	Inactive   int
	UniqueTags []string
}

// Bool returns a pointer to b, for tri-state filter fields
func Bool(b bool) *bool {
	return &b
}

// Int64 returns a pointer to v
func Int64(v int64) *int64 {
	return &v
}

// Type returns a pointer to t
func Type(t ItemType) *ItemType {
	return &t
}
