package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"familypoints/internal/models"
)

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestNotifyRedemptionRequested(t *testing.T) {
	email := "mum@example.com"
	parents := []models.Account{
		{ID: 1, Name: "Mum", Email: &email},
		{ID: 2, Name: "Dad"},
	}
	child := &models.Account{ID: 3, Name: "Alice"}
	item := &models.RewardCatalogItem{ID: 4, Name: "Cinema <trip>", CostPoints: 30}

	ses := &fakeSES{}
	svc := newEmailService(ses, "points@example.com", "Family Points", "https://points.example.com", false)
	if err := svc.NotifyRedemptionRequested(context.Background(), parents, child, item); err != nil {
		t.Fatalf("NotifyRedemptionRequested() error = %v", err)
	}
	if len(ses.inputs) != 1 {
		t.Fatalf("sent %d emails, want 1 (parents without email are skipped)", len(ses.inputs))
	}

	in := ses.inputs[0]
	if in.Destination.ToAddresses[0] != email {
		t.Errorf("to = %v", in.Destination.ToAddresses)
	}
	if *in.FromEmailAddress != "Family Points <points@example.com>" {
		t.Errorf("from = %q", *in.FromEmailAddress)
	}
	if subject := *in.Content.Simple.Subject.Data; !strings.Contains(subject, "Alice") {
		t.Errorf("subject = %q", subject)
	}
	body := *in.Content.Simple.Body.Html.Data
	if !strings.Contains(body, "Cinema &lt;trip&gt;") || !strings.Contains(body, "childId=3") {
		t.Errorf("html body not escaped or missing link")
	}
}

func TestNotifyRedemptionRequestedErrors(t *testing.T) {
	email := "mum@example.com"
	parents := []models.Account{{ID: 1, Name: "Mum", Email: &email}}
	child := &models.Account{ID: 3, Name: "Alice"}
	item := &models.RewardCatalogItem{ID: 4, Name: "Cinema", CostPoints: 30}

	ses := &fakeSES{err: errors.New("throttled")}
	svc := newEmailService(ses, "points@example.com", "", "https://points.example.com", false)
	if err := svc.NotifyRedemptionRequested(context.Background(), parents, child, item); err == nil {
		t.Error("NotifyRedemptionRequested() expected error from SES")
	}

	disabled := &EmailService{}
	if err := disabled.NotifyRedemptionRequested(context.Background(), parents, child, item); err != nil {
		t.Errorf("disabled service error = %v", err)
	}
	if disabled.IsEnabled() {
		t.Error("zero EmailService should be disabled")
	}
}
