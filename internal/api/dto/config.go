package dto

// KeywordsRequest replaces the collector's keyword list
type KeywordsRequest struct {
	Keywords []string `json:"keywords" binding:"required"`
}

type KeywordsResponse struct {
	Keywords []string `json:"keywords"`
}
