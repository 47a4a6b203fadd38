package domain

import "time"

// ItemKind distinguishes the three library types an item can belong to.
type ItemKind string

const (
	KindEBook     ItemKind = "ebook"
	KindAudioBook ItemKind = "audiobook"
	KindMagazine  ItemKind = "magazine"
)

// ItemStatus tracks where a wanted item sits in the acquisition lifecycle.
type ItemStatus string

const (
	ItemStatusSkipped   ItemStatus = "skipped"
	ItemStatusWanted    ItemStatus = "wanted"
	ItemStatusSnatched  ItemStatus = "snatched"
	ItemStatusProcessed ItemStatus = "processed"
)

// WantedItem is a book, audiobook or magazine issue the system wants to acquire.
// ID is unique within its kind; authorName+title are used only for scoring.
type WantedItem struct {
	ID          string
	Kind        ItemKind
	AuthorName  string
	Title       string
	Subtitle    string
	Status      ItemStatus
	AudioStatus ItemStatus
	IssueStatus ItemStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SearchTerm is the display string the item is searched under.
func (w WantedItem) SearchTerm() string {
	if w.AuthorName == "" {
		return w.Title
	}
	return w.AuthorName + " " + w.Title
}

// StatusForKind returns the status column tracking this item's own kind.
func (w WantedItem) StatusForKind() ItemStatus {
	switch w.Kind {
	case KindAudioBook:
		return w.AudioStatus
	case KindMagazine:
		return w.IssueStatus
	default:
		return w.Status
	}
}
