package mailer

import (
	"encoding/json"
	"fmt"
	"net/smtp"
)

// Message is the queue payload for a single outbound mail.
type Message struct {
	Id      string `json:"id"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type Sender = func(msg Message) error

func SmtpSender(host string, port string, username string, password string, from string) Sender {
	return func(msg Message) error {
		auth := smtp.PlainAuth("", username, password, host)
		raw := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
			from, msg.Email, msg.Subject, msg.Body)
		err := smtp.SendMail(host+":"+port, auth, from, []string{msg.Email}, []byte(raw))
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	}
}

// DeliverPayload adapts a Sender to the outbox payload contract.
func DeliverPayload(send Sender) func(payload string) error {
	return func(payload string) error {
		var msg Message
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			return fmt.Errorf("message deserialize: %w", err)
		}
		return send(msg)
	}
}
