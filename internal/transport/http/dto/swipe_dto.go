package dto

type SwipeDecisionRequest struct {
	Direction string `json:"direction"`
}

type SwipeCardResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Professions string `json:"professions,omitempty"`
	Skills      string `json:"skills,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	OwnerID     string `json:"owner_id"`
}

type SwipeQueueResponse struct {
	Count int `json:"count"`
}

type SwipeCurrentResponse struct {
	Card      *SwipeCardResponse `json:"card,omitempty"`
	Exhausted bool               `json:"exhausted"`
}

type SwipeOutcomeResponse struct {
	OK        bool               `json:"ok"`
	LikeSaved bool               `json:"like_saved"`
	Match     *MatchResponse     `json:"match,omitempty"`
	Exhausted bool               `json:"exhausted"`
	Next      *SwipeCardResponse `json:"next,omitempty"`
}
