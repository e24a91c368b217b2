package ats

// Source identifies the ATS provider a posting was fetched from.
type Source string

const (
	SourceGreenhouse Source = "greenhouse"
	SourceLever      Source = "lever"
	SourceWorkday    Source = "workday"
)

func (s Source) String() string { return string(s) }

// Posting is a job posting normalized across providers.
// ID and Source together identify a posting within one board.
type Posting struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Location    string `json:"location"`
	Description string `json:"description"`
	ApplyURL    string `json:"apply_url"`
	Source      Source `json:"source"`
}

// Postings is an ordered list of postings as returned by a connector.
type Postings []Posting

// FindByID returns the posting with the given id or nil.
func (p Postings) FindByID(id string) *Posting {
	for i := range p {
		if p[i].ID == id {
			return &p[i]
		}
	}
	return nil
}
