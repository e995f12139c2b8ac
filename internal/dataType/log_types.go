package dataType

type SendRequest struct {
	Key string  `json:"key" validate:"required"`
	Msg *uint64 `json:"msg" validate:"required"`
}

type SendOk struct {
	Offset uint64 `json:"offset"`
}

type PollRequest struct {
	Offsets map[string]uint64 `json:"offsets" validate:"required"`
}

// PollOk holds, per key, [offset, value] pairs in log order.
type PollOk struct {
	Msgs map[string][][2]uint64 `json:"msgs"`
}

type CommitOffsetsRequest struct {
	Offsets map[string]uint64 `json:"offsets" validate:"required"`
}

type ListCommittedOffsetsRequest struct {
	Keys []string `json:"keys" validate:"required"`
}

type ListCommittedOffsetsOk struct {
	Offsets map[string]uint64 `json:"offsets"`
}
