package model

// OverdueItem is an unfinished item past its due date, with the owner's
// contact details.
type OverdueItem struct {
	Item     TodoItem
	Email    string
	UserName string
}
