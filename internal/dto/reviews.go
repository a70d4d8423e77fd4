package dto

// ReviewRequest creates or replaces a review. Rating is 1 to 5.
type ReviewRequest struct {
	Text   string `json:"text"`
	Rating int    `json:"rating"`
}

type ReviewResponse struct {
	ID        string `json:"id"`
	SubjectID string `json:"subject_id"`
	AuthorID  string `json:"author_id"`
	Text      string `json:"text"`
	Rating    int    `json:"rating"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ReviewListResponse lists a user's reviews with their mean rating
type ReviewListResponse struct {
	Reviews       []ReviewResponse `json:"reviews"`
	Count         int              `json:"count"`
	AverageRating float64          `json:"average_rating"`
}
