package domain

// Confidence is a coarse, passage-count-derived label. It is not a calibrated
// probability and must not be treated as one.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// PassageMetadata carries the citation data stored alongside an indexed chunk.
type PassageMetadata struct {
	Source       string `json:"source"`
	Title        string `json:"title"`
	Filename     string `json:"filename"`
	PageNumber   int    `json:"page_number,omitempty"`
	TotalPages   int    `json:"total_pages,omitempty"`
	Language     string `json:"language,omitempty"`
	OriginalText string `json:"original_text,omitempty"`
}

// Passage is a retrieved unit of evidence, scoped to a single query.
// SimilarityScore is the cosine similarity from the vector index.
// RerankScore is the cross-encoder logit; the two live on different scales
// and are never blended into one number.
type Passage struct {
	Text            string          `json:"text"`
	SimilarityScore float64         `json:"similarity_score"`
	RerankScore     *float64        `json:"rerank_score,omitempty"`
	Metadata        PassageMetadata `json:"metadata"`
}

// Score returns the ranking key: the rerank logit when present, the vector
// similarity otherwise.
func (p Passage) Score() float64 {
	if p.RerankScore != nil {
		return *p.RerankScore
	}
	return p.SimilarityScore
}

// SourceRef is a user-facing citation in the final response.
type SourceRef struct {
	Source     string  `json:"source"`
	File       string  `json:"file"`
	Filename   string  `json:"filename"`
	Page       int     `json:"page,omitempty"`
	TotalPages int     `json:"total_pages,omitempty"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
}

// RAGResponse is the final pipeline output. Sources is always a subset of the
// passages that survived relevance filtering; an empty Sources list implies
// Low confidence and the fixed insufficient-information answer.
type RAGResponse struct {
	Answer        string      `json:"answer"`
	Sources       []SourceRef `json:"sources"`
	QueryLanguage Language    `json:"query_language"`
	Confidence    Confidence  `json:"confidence"`
	ModelUsed     string      `json:"model_used"`
	Reranked      bool        `json:"reranked"`
}

// ChatTurn is one prior conversation turn, used for follow-up rewriting.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AskRequest is the single inbound operation of the answering core.
// ResponseLanguage, when set, overrides the detected query language.
// Backend selects the generation backend by identifier and is echoed back
// as ModelUsed. PriorTurns, when present, take precedence over stored
// conversation history.
type AskRequest struct {
	Question         string
	ResponseLanguage *Language
	Backend          string
	ConversationID   string
	PriorTurns       []ChatTurn
}
