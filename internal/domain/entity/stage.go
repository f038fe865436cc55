// Package entity 定义领域实体
package entity

// Stage 工作流阶段
type Stage string

const (
	StageInput            Stage = "Input"
	StageOutlinePending   Stage = "OutlinePending"
	StageAwaitingApproval Stage = "AwaitingApproval"
	StageWriting          Stage = "Writing"
	StageDesigning        Stage = "Designing"
	StageReviewing        Stage = "Reviewing"
	StageCompleted        Stage = "Completed"
)

// Step 返回阶段序号（0..6），未知阶段返回 -1
func (s Stage) Step() int {
	switch s {
	case StageInput:
		return 0
	case StageOutlinePending:
		return 1
	case StageAwaitingApproval:
		return 2
	case StageWriting:
		return 3
	case StageDesigning:
		return 4
	case StageReviewing:
		return 5
	case StageCompleted:
		return 6
	default:
		return -1
	}
}

// IsBusy 阶段是否有进行中的生成调用
func (s Stage) IsBusy() bool {
	switch s {
	case StageOutlinePending, StageWriting, StageDesigning, StageReviewing:
		return true
	default:
		return false
	}
}
