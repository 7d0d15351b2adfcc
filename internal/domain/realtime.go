package domain

import "time"

// SpotSnapshotNotification - snapshot toàn bộ bảng chỗ đỗ, gửi đến frontend qua
// WebSocket sau mỗi lần trạng thái thay đổi. Frontend thay thế toàn bộ state
// hiện tại bằng snapshot mới, không cần xử lý diff.
type SpotSnapshotNotification struct {
	Type      string    `json:"type"` // Luôn là "spots_snapshot"
	Spots     []Spot    `json:"spots"`
	Timestamp time.Time `json:"timestamp"`
}

const SnapshotMessageType = "spots_snapshot"
