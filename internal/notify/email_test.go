package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "",
		FromEmail: "test@example.com",
	}, nil)

	if sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "test@example.com",
		FromName:  "",
	}, nil)

	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != "Find ABA Therapy" {
		t.Errorf("expected default from name 'Find ABA Therapy', got %q", sender.fromName)
	}
}

func TestNewSendGridSender_CustomFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "test@example.com",
		FromName:  "Custom Name",
	}, nil)

	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != "Custom Name" {
		t.Errorf("expected from name 'Custom Name', got %q", sender.fromName)
	}
}

func TestSendGridSender_Send_NilClient(t *testing.T) {
	sender := &SendGridSender{
		client: nil,
	}

	err := sender.Send(context.Background(), EmailMessage{
		To:      "recipient@example.com",
		Subject: "Test",
		Body:    "Test body",
	})

	if err == nil {
		t.Error("expected error when client is nil")
	}
}

func TestStubEmailSender_Send(t *testing.T) {
	sender := NewStubEmailSender(nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:      "recipient@example.com",
		Subject: "Test Subject",
		Body:    "Test body",
	})

	if err != nil {
		t.Errorf("stub sender should not return error, got: %v", err)
	}
}

func TestRecordingSender_KeepsMessagesAndError(t *testing.T) {
	sender := &RecordingSender{Err: errors.New("mailbox full")}

	err := sender.Send(context.Background(), EmailMessage{To: "a@example.com", Subject: "One"})
	if err == nil || err.Error() != "mailbox full" {
		t.Fatalf("expected configured error, got %v", err)
	}
	sent := sender.Sent()
	if len(sent) != 1 || sent[0].Subject != "One" {
		t.Fatalf("unexpected recorded messages: %+v", sent)
	}
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestNewSESSender_NilClient(t *testing.T) {
	if NewSESSender(nil, SESConfig{FromEmail: "noreply@example.com"}, nil) != nil {
		t.Error("expected nil sender without a client")
	}
}

func TestSESSender_Send(t *testing.T) {
	api := &fakeSES{}
	sender := newSESSender(api, SESConfig{FromEmail: "noreply@findabatherapy.org"}, nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:      "provider@example.com",
		ReplyTo: "family@example.com",
		Subject: "New inquiry",
		Body:    "text",
		HTML:    "<p>html</p>",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := aws.ToString(api.input.FromEmailAddress); got != "Find ABA Therapy <noreply@findabatherapy.org>" {
		t.Errorf("unexpected from address %q", got)
	}
	if len(api.input.ReplyToAddresses) != 1 || api.input.ReplyToAddresses[0] != "family@example.com" {
		t.Errorf("unexpected reply-to %v", api.input.ReplyToAddresses)
	}
	body := api.input.Content.Simple.Body
	if aws.ToString(body.Text.Data) != "text" || aws.ToString(body.Html.Data) != "<p>html</p>" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestSESSender_SendError(t *testing.T) {
	sender := newSESSender(&fakeSES{err: errors.New("throttled")}, SESConfig{FromEmail: "x@example.com"}, nil)
	if err := sender.Send(context.Background(), EmailMessage{To: "a@example.com", Subject: "s", Body: "b"}); err == nil {
		t.Fatal("expected error")
	}
}
