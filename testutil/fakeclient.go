// Package testutil provides shared fakes for session and store tests.
package testutil

import (
	"context"
	"sync"

	"github.com/onnwee/wa-bridge/whatsapp"
)

// FakeClient is a scripted stand-in for the whatsmeow-backed client. Tests
// drive the lifecycle by calling Emit* methods; the chats and errors it
// serves are plain fields.
type FakeClient struct {
	mu sync.Mutex

	handle func(whatsapp.Event)

	Chats        []whatsapp.Chat
	ListErr      error
	ConnectErr   error
	TerminateErr error
	Self         string

	ConnectCalls   int
	ListCalls      int
	TerminateCalls int
}

// NewFakeFactory returns a ClientFactory that hands out clients from next on
// each call. It panics when the script runs out, which in a test reads as
// "Connect was called more often than expected".
func NewFakeFactory(next ...*FakeClient) whatsapp.ClientFactory {
	i := 0
	return func(handle func(whatsapp.Event)) (whatsapp.Client, error) {
		if i >= len(next) {
			panic("testutil: fake factory exhausted")
		}
		c := next[i]
		i++
		c.handle = handle
		return c, nil
	}
}

func (c *FakeClient) Connect(context.Context) error {
	c.mu.Lock()
	c.ConnectCalls++
	err := c.ConnectErr
	c.mu.Unlock()
	return err
}

func (c *FakeClient) ListChats(context.Context) ([]whatsapp.Chat, error) {
	c.mu.Lock()
	c.ListCalls++
	chats, err := c.Chats, c.ListErr
	c.mu.Unlock()
	return chats, err
}

func (c *FakeClient) SelfID() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Self, c.Self != ""
}

func (c *FakeClient) Terminate(context.Context) error {
	c.mu.Lock()
	c.TerminateCalls++
	err := c.TerminateErr
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.Emit(whatsapp.Event{Kind: whatsapp.EventDisconnected, Reason: "terminated by request"})
	return nil
}

// Emit delivers an event to the manager the client was wired to.
func (c *FakeClient) Emit(ev whatsapp.Event) {
	c.mu.Lock()
	handle := c.handle
	c.mu.Unlock()
	if handle != nil {
		handle(ev)
	}
}

// EmitQR is shorthand for the login-token-issued event.
func (c *FakeClient) EmitQR(code string) {
	c.Emit(whatsapp.Event{Kind: whatsapp.EventQR, QRCode: code})
}

// EmitReady is shorthand for the ready event.
func (c *FakeClient) EmitReady(name, number string) {
	c.Emit(whatsapp.Event{Kind: whatsapp.EventReady, Info: &whatsapp.ClientInfo{Name: name, Number: number}})
}
