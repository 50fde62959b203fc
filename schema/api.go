package schema

type RespErr struct {
	Err string `json:"error"`
}

func (r RespErr) Error() string {
	return r.Err
}

type NewAttemptReq struct {
	Label         string `json:"label"`
	DurationYears int    `json:"durationYears"`
	ReverseRecord *bool  `json:"reverseRecord,omitempty"`
}

type AvailableResp struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

type TooEarlyResp struct {
	Err              string `json:"error"`
	RemainingSeconds int64  `json:"remainingSeconds"`
}

type ChatReq struct {
	Message string `json:"message"`
}

type ChatResp struct {
	Action    Action `json:"action"`
	AttemptId string `json:"attemptId,omitempty"`
	Reply     string `json:"reply,omitempty"`
}

type WatchReq struct {
	Label string `json:"label"`
	Owner string `json:"owner"`
}
