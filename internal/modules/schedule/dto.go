package schedule

type ValidateRequest struct {
	Blocks     []BlockInput `json:"blocks" binding:"required,min=1,dive"`
	Confidence string       `json:"confidence" binding:"omitempty,oneof=high medium low"`
}

type BlockInput struct {
	ID     string `json:"id" binding:"max=64"`
	TaskID int64  `json:"task_id"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

func (r ValidateRequest) toRequest() Request {
	blocks := make([]Block, len(r.Blocks))
	for i, b := range r.Blocks {
		blocks[i] = Block(b)
	}
	return Request{Blocks: blocks, Confidence: r.Confidence}
}
