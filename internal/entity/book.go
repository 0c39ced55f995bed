package entity

// Book is a catalog record. Year is nil when the publication year is unknown.
type Book struct {
	ID     int64  `json:"id" db:"id"`
	Title  string `json:"title" db:"title"`
	Author string `json:"author" db:"author"`
	Year   *int   `json:"year" db:"year"`
}
