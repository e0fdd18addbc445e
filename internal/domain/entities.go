package domain

import "fmt"

// Category identifies a semantic partition of the embedding store.
type Category string

const (
	CategoryProfessional Category = "Professional"
	CategoryIT           Category = "IT"
	CategorySoft         Category = "Soft"
	CategoryLanguage     Category = "Language"
	CategoryCourses      Category = "Courses"
	CategoryProfessions  Category = "Professions"
)

// Record is one embedded entity: its vector, normalized key and display title.
type Record struct {
	Vector []float32
	Key    string
	Title  string
}

// Records is the persisted form of a category: three index-aligned sequences.
// Index i in Vectors, Keys and Titles always refers to the same record.
type Records struct {
	Vectors [][]float32
	Keys    []string
	Titles  []string
}

// Len returns the number of records.
func (r *Records) Len() int {
	return len(r.Keys)
}

// Validate checks that the three sequences are aligned and that every
// vector has the same dimension.
func (r *Records) Validate() error {
	if len(r.Vectors) != len(r.Keys) || len(r.Keys) != len(r.Titles) {
		return fmt.Errorf("misaligned records: %d vectors, %d keys, %d titles",
			len(r.Vectors), len(r.Keys), len(r.Titles))
	}
	if len(r.Vectors) == 0 {
		return nil
	}
	dim := len(r.Vectors[0])
	for i, v := range r.Vectors {
		if len(v) != dim {
			return fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), dim)
		}
	}
	return nil
}

// Dimension returns the vector dimension, or 0 when empty.
func (r *Records) Dimension() int {
	if len(r.Vectors) == 0 {
		return 0
	}
	return len(r.Vectors[0])
}

// IndexOf returns the position of key, or -1.
func (r *Records) IndexOf(key string) int {
	for i, k := range r.Keys {
		if k == key {
			return i
		}
	}
	return -1
}

// At returns the record at index i.
func (r *Records) At(i int) Record {
	return Record{Vector: r.Vectors[i], Key: r.Keys[i], Title: r.Titles[i]}
}

// Append adds rec at the end of all three sequences.
func (r *Records) Append(rec Record) {
	r.Vectors = append(r.Vectors, rec.Vector)
	r.Keys = append(r.Keys, rec.Key)
	r.Titles = append(r.Titles, rec.Title)
}

// RemoveAt drops index i from all three sequences at once.
func (r *Records) RemoveAt(i int) {
	r.Vectors = append(r.Vectors[:i:i], r.Vectors[i+1:]...)
	r.Keys = append(r.Keys[:i:i], r.Keys[i+1:]...)
	r.Titles = append(r.Titles[:i:i], r.Titles[i+1:]...)
}

// Clone returns a copy whose slices do not share backing arrays with r.
// Vectors themselves are shared; they are never mutated in place.
func (r *Records) Clone() Records {
	return Records{
		Vectors: append([][]float32(nil), r.Vectors...),
		Keys:    append([]string(nil), r.Keys...),
		Titles:  append([]string(nil), r.Titles...),
	}
}

// Match is a stored title scored against a query.
type Match struct {
	Title    string   `json:"title"`
	Score    float64  `json:"score"`
	Category Category `json:"category"`
}

// Reporter receives human-readable status and warning messages.
// A nil Reporter discards them.
type Reporter func(msg string)

// Report formats and delivers a message if r is non-nil.
func (r Reporter) Report(format string, args ...any) {
	if r == nil {
		return
	}
	r(fmt.Sprintf(format, args...))
}
