package service

import (
	"errors"
	"time"

	"parking_reservation/internal/domain"
)

// Các hằng số của lưới thời gian đặt chỗ: chọn giờ theo bước 30 phút, bắt đầu
// muộn nhất 16 tiếng kể từ bây giờ, đỗ tối đa 10 tiếng.
const (
	SlotStep           = 30 * time.Minute
	MaxLeadTime        = 16 * time.Hour
	MaxBookingDuration = 10 * time.Hour

	// Khoảng dung sai cho phép giữa lúc frontend sinh lựa chọn và lúc người
	// dùng bấm xác nhận.
	startTimeGrace = 5 * time.Minute
)

var ErrInvalidTimeWindow = errors.New("khoảng thời gian đặt chỗ không hợp lệ")

// ErrNoBookableTime: không sinh được lựa chọn bắt đầu nào - caller phải báo
// "không thể đặt chỗ" chứ không hiển thị danh sách rỗng.
var ErrNoBookableTime = errors.New("không có khung giờ nào có thể đặt")

// RoundUpToSlot làm tròn lên mốc 30 phút kế tiếp. Phút 0 giữ nguyên (đã thẳng
// mốc), phút 1-30 thành :30, phút 31-59 lên :00 của giờ sau. Ranh giới phút 0
// và phút 30 đã được chốt theo hành vi quan sát được - đổi nó là đổi khung giờ
// đầu tiên được đề xuất.
func RoundUpToSlot(t time.Time) time.Time {
	switch m := t.Minute(); {
	case m == 0:
		return t.Truncate(time.Minute)
	case m <= 30:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 30, 0, 0, t.Location())
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location()).Add(time.Hour)
	}
}

// StartTimeOptions liệt kê các giờ bắt đầu hợp lệ: từ now làm tròn lên mốc 30
// phút, mỗi bước 30 phút, đến hết now + 16h (bao gồm cả mốc cuối).
func StartTimeOptions(now time.Time) []domain.TimeOption {
	limit := now.Add(MaxLeadTime)
	var options []domain.TimeOption
	for t := RoundUpToSlot(now); !t.After(limit); t = t.Add(SlotStep) {
		options = append(options, domain.TimeOption{
			Label: t.Format("15:04"),
			Value: t.Format(time.RFC3339),
		})
	}
	return options
}

// EndTimeOptions liệt kê các giờ kết thúc cho một giờ bắt đầu đã chọn: từ
// start + 30 phút đến hết start + 10h.
func EndTimeOptions(start time.Time) []domain.TimeOption {
	limit := start.Add(MaxBookingDuration)
	var options []domain.TimeOption
	for t := start.Add(SlotStep); !t.After(limit); t = t.Add(SlotStep) {
		options = append(options, domain.TimeOption{
			Label: t.Format("15:04"),
			Value: t.Format(time.RFC3339),
		})
	}
	return options
}

// ResolveEndSelection giữ lựa chọn kết thúc hiện tại nếu nó vẫn còn trong danh
// sách mới; nếu không thì reset về lựa chọn đầu tiên, hoặc rỗng khi danh sách
// rỗng. Xảy ra khi người dùng đổi giờ bắt đầu làm giờ kết thúc cũ vô hiệu.
func ResolveEndSelection(options []domain.TimeOption, selected string) string {
	for _, opt := range options {
		if opt.Value == selected {
			return selected
		}
	}
	if len(options) > 0 {
		return options[0].Value
	}
	return ""
}

// ValidateWindow kiểm tra các tiền điều kiện của một yêu cầu đặt chỗ. Vi phạm
// trả về ErrInvalidTimeWindow và không bao giờ được phép chạm tới store.
func ValidateWindow(now, start, end time.Time) error {
	if !end.After(start) {
		return ErrInvalidTimeWindow
	}
	if start.Before(now.Add(-startTimeGrace)) {
		return ErrInvalidTimeWindow // Giờ bắt đầu đã nằm trong quá khứ
	}
	if start.After(now.Add(MaxLeadTime)) {
		return ErrInvalidTimeWindow
	}
	if end.Sub(start) > MaxBookingDuration {
		return ErrInvalidTimeWindow
	}
	return nil
}
