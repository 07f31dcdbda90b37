package models

import "time"

// Connection describes the single live broker connection.
type Connection struct {
	Host        string    `json:"host"`
	Port        int       `json:"port"`
	TopicFilter string    `json:"topic_filter"`
	Username    string    `json:"username,omitempty"`
	Password    string    `json:"-"` // never rendered
	ClientID    string    `json:"client_id,omitempty"`
	Connected   bool      `json:"connected"`
	LastError   string    `json:"last_error,omitempty"`
	ConnectedAt time.Time `json:"connected_at,omitempty"`
}

// Endpoint is the broker address and credentials used for a send.
type Endpoint struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Endpoint returns the address/credentials part of the connection.
func (c Connection) Endpoint() Endpoint {
	return Endpoint{Host: c.Host, Port: c.Port, Username: c.Username, Password: c.Password}
}

// HasCredentials mirrors the broker rule: auth is sent only when both are set.
func (e Endpoint) HasCredentials() bool {
	return e.Username != "" && e.Password != ""
}
