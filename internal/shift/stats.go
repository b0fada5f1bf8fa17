package shift

// Stats are the end-of-shift counters.
type Stats struct {
	Died         int `json:"died"`
	Sacrificed   int `json:"sacrificed"`
	Transplanted int `json:"transplanted"`
}
