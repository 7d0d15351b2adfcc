package service

import (
	"testing"
	"time"

	"parking_reservation/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed
}

func TestRoundUpToSlot(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		// Phút 0 giữ nguyên - ranh giới đã chốt, đổi là đổi khung giờ đầu tiên
		{"phút 0 giữ nguyên", "2025-06-13T09:00:00Z", "2025-06-13T09:00:00Z"},
		{"phút 0 có giây vẫn giữ mốc giờ", "2025-06-13T09:00:45Z", "2025-06-13T09:00:00Z"},
		{"phút 1 lên :30", "2025-06-13T09:01:00Z", "2025-06-13T09:30:00Z"},
		{"phút 10 lên :30", "2025-06-13T09:10:00Z", "2025-06-13T09:30:00Z"},
		{"phút 30 giữ :30", "2025-06-13T09:30:00Z", "2025-06-13T09:30:00Z"},
		{"phút 31 lên giờ sau", "2025-06-13T09:31:00Z", "2025-06-13T10:00:00Z"},
		{"phút 59 lên giờ sau", "2025-06-13T09:59:59Z", "2025-06-13T10:00:00Z"},
		{"cuối ngày sang ngày mới", "2025-06-13T23:45:00Z", "2025-06-14T00:00:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundUpToSlot(mustTime(t, tt.in))
			assert.Equal(t, mustTime(t, tt.want), got)
		})
	}
}

func TestStartTimeOptions(t *testing.T) {
	now := mustTime(t, "2025-06-13T09:00:00Z")
	options := StartTimeOptions(now)

	// 16 giờ theo bước 30 phút, tính cả hai đầu: 33 lựa chọn
	require.Len(t, options, 33)
	assert.Equal(t, "2025-06-13T09:00:00Z", options[0].Value)
	assert.Equal(t, "09:00", options[0].Label)
	assert.Equal(t, "2025-06-14T01:00:00Z", options[len(options)-1].Value)

	limit := now.Add(MaxLeadTime)
	for _, opt := range options {
		ts := mustTime(t, opt.Value)
		assert.False(t, ts.Before(now), "lựa chọn %s nằm trước now", opt.Value)
		assert.False(t, ts.After(limit), "lựa chọn %s vượt quá now+16h", opt.Value)
		m := ts.Minute()
		assert.True(t, m == 0 || m == 30, "lựa chọn %s không thẳng mốc 30 phút", opt.Value)
	}
}

func TestStartTimeOptionsRoundedFirstSlot(t *testing.T) {
	// 09:10 -> lựa chọn đầu tiên phải là 09:30
	options := StartTimeOptions(mustTime(t, "2025-06-13T09:10:00Z"))
	require.NotEmpty(t, options)
	assert.Equal(t, "2025-06-13T09:30:00Z", options[0].Value)

	// 09:31 -> lựa chọn đầu tiên phải là 10:00
	options = StartTimeOptions(mustTime(t, "2025-06-13T09:31:00Z"))
	require.NotEmpty(t, options)
	assert.Equal(t, "2025-06-13T10:00:00Z", options[0].Value)
}

func TestEndTimeOptions(t *testing.T) {
	start := mustTime(t, "2025-06-13T10:00:00Z")
	options := EndTimeOptions(start)

	// Từ start+30m đến start+10h: 20 lựa chọn
	require.Len(t, options, 20)
	assert.Equal(t, "2025-06-13T10:30:00Z", options[0].Value)
	assert.Equal(t, "2025-06-13T20:00:00Z", options[len(options)-1].Value)

	limit := start.Add(MaxBookingDuration)
	for _, opt := range options {
		ts := mustTime(t, opt.Value)
		assert.True(t, ts.After(start))
		assert.False(t, ts.After(limit))
	}
}

func TestResolveEndSelection(t *testing.T) {
	options := []domain.TimeOption{
		{Label: "10:30", Value: "2025-06-13T10:30:00Z"},
		{Label: "11:00", Value: "2025-06-13T11:00:00Z"},
	}

	// Lựa chọn còn hợp lệ thì giữ nguyên
	assert.Equal(t, "2025-06-13T11:00:00Z", ResolveEndSelection(options, "2025-06-13T11:00:00Z"))

	// Lựa chọn không còn trong danh sách thì reset về phần tử đầu
	assert.Equal(t, "2025-06-13T10:30:00Z", ResolveEndSelection(options, "2025-06-13T23:00:00Z"))

	// Danh sách rỗng thì trả rỗng
	assert.Equal(t, "", ResolveEndSelection(nil, "2025-06-13T11:00:00Z"))
}

func TestValidateWindow(t *testing.T) {
	now := mustTime(t, "2025-06-13T09:00:00Z")

	tests := []struct {
		name    string
		start   string
		end     string
		wantErr bool
	}{
		{"khung giờ hợp lệ", "2025-06-13T09:30:00Z", "2025-06-13T11:00:00Z", false},
		{"kết thúc bằng bắt đầu", "2025-06-13T09:30:00Z", "2025-06-13T09:30:00Z", true},
		{"kết thúc trước bắt đầu", "2025-06-13T11:00:00Z", "2025-06-13T09:30:00Z", true},
		{"bắt đầu trong quá khứ quá dung sai", "2025-06-13T08:00:00Z", "2025-06-13T10:00:00Z", true},
		{"bắt đầu hơi lệch về quá khứ trong dung sai", "2025-06-13T08:58:00Z", "2025-06-13T10:00:00Z", false},
		{"đỗ đúng 10 tiếng", "2025-06-13T09:30:00Z", "2025-06-13T19:30:00Z", false},
		{"đỗ quá 10 tiếng", "2025-06-13T09:30:00Z", "2025-06-13T20:00:00Z", true},
		{"bắt đầu đúng 16 tiếng sau", "2025-06-14T01:00:00Z", "2025-06-14T02:00:00Z", false},
		{"bắt đầu quá 16 tiếng sau", "2025-06-14T01:30:00Z", "2025-06-14T02:00:00Z", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWindow(now, mustTime(t, tt.start), mustTime(t, tt.end))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTimeWindow)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
