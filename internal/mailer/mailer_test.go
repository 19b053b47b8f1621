package mailer

import (
	"strings"
	"testing"

	"github.com/wifi-portal/request-service/internal/model"
)

func sampleRequest() *model.WifiRequest {
	return &model.WifiRequest{
		ID:          "john101",
		Name:        "John Doe",
		Email:       "john@example.test",
		RoomNumber:  "101",
		DeviceType:  model.DeviceLaptop,
		IssueType:   model.IssueSlow,
		Description: "WiFi drops every few minutes",
	}
}

func TestBuildBody(t *testing.T) {
	reason := "This request was automatically escalated because it was pending for 20+ minutes without resolution."
	body := BuildBody(sampleRequest(), reason)

	for _, want := range []string{
		"John Doe", "john@example.test", "Room: 101",
		"Issue Type: slow", "Device Type: laptop",
		"WiFi drops every few minutes", reason,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestNotifyUnconfiguredIsNoop(t *testing.T) {
	m := New("", "465", "", "", "")
	if m.Configured() {
		t.Fatal("mailer with empty host must report unconfigured")
	}
	if m.Notify(sampleRequest(), []string{"it@hotel.test"}, "reason") {
		t.Error("unconfigured mailer must return false, not attempt delivery")
	}
}

func TestNotifyNoRecipients(t *testing.T) {
	m := New("smtp.hotel.test", "465", "user", "pass", "support@hotel.test")
	if m.Notify(sampleRequest(), nil, "reason") {
		t.Error("no recipients: nothing to send")
	}
}
