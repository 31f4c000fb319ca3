package relay

import "fmt"

// MessageRef identifies a previously sent message so it can be edited.
// MessageID is a string because that is the shape Telegram's edit API wants.
type MessageRef struct {
	ChatID    int64
	MessageID string
}

// Button is one inline choice. Data is the opaque callback value, a fixed
// prefix plus the mode key.
type Button struct {
	Label string
	Data  string
}

// Renderer is the outbound side of the transport: it executes render
// instructions emitted by the controller. Implementations send real chat
// messages; tests record the instructions instead.
type Renderer interface {
	// SendText sends a plain message to the user.
	SendText(userID int64, body string) error

	// SendChoices sends a message with one inline button per choice,
	// preserving button order.
	SendChoices(userID int64, body string, buttons []Button) error

	// EditMessage replaces the body of an existing message and strips its
	// buttons.
	EditMessage(ref MessageRef, body string) error
}

// CallbackPrefix marks selection callbacks addressed to this controller.
// Callback data is CallbackPrefix + mode key; events with other prefixes are
// not ours.
const CallbackPrefix = "mode_"

const (
	msgGreeting = "Hi! 👋\n\nSend me some text and I'll rewrite it from slang into plain language, or the other way around. 📝🔄"

	msgChooseDirection = "Choose a direction:"

	msgUnknownMode = "😕 Error: unknown mode selected."

	msgNoText = "😕 Error: no text found to convert. Please send it again."
)

func workingMessage(label string) string {
	return fmt.Sprintf("Converting: %q. Hang tight... ⏳", label)
}

func resultMessage(text string) string {
	return fmt.Sprintf("🧐 Result:\n\n%s\n\n➖➖➖➖➖\nSend a new text whenever you're ready.", text)
}

func failureMessage(label string) string {
	return fmt.Sprintf("😕 Oops! Couldn't convert the text in mode “%s”. Please try again.", label)
}
