package contact

import (
	"context"
	"log/slog"

	"golang.org/x/net/html"

	"github.com/ziadkadry99/folio/internal/dom"
)

const (
	DefaultFormSelector   = "#contact-form"
	DefaultStatusSelector = "#form-status"
)

// Form is the page's contact form after fragments have settled.
type Form struct {
	doc    *dom.Document
	el     *html.Node
	status *html.Node
	logger *slog.Logger
}

// Bind finds the contact form in doc. It returns nil when the page has
// none.
func Bind(doc *dom.Document, selector string, logger *slog.Logger) *Form {
	if selector == "" {
		selector = DefaultFormSelector
	}
	if logger == nil {
		logger = slog.Default()
	}
	f := &Form{doc: doc, logger: logger}
	doc.View(func(root *html.Node) {
		f.el = dom.QuerySelector(root, selector)
		if f.el != nil {
			f.status = dom.QuerySelector(root, DefaultStatusSelector)
		}
	})
	if f.el == nil {
		return nil
	}
	return f
}

// Element returns the form node.
func (f *Form) Element() *html.Node { return f.el }

// Action returns the form's action attribute, or def when unset.
func (f *Form) Action(def string) string {
	var a string
	f.doc.View(func(*html.Node) { a = dom.AttrOr(f.el, "action", "") })
	if a == "" {
		return def
	}
	return a
}

func (f *Form) field(name string) *html.Node {
	return dom.QuerySelector(f.el, "[name="+name+"]")
}

// Fill writes sub into the form's fields.
func (f *Form) Fill(sub Submission) {
	f.doc.Update(func(*html.Node) {
		for name, v := range map[string]string{"name": sub.Name, "email": sub.Email, "message": sub.Message} {
			n := f.field(name)
			if n == nil {
				continue
			}
			if n.Data == "textarea" {
				dom.SetText(n, v)
			} else {
				dom.SetAttr(n, "value", v)
			}
		}
	})
}

// Values reads the form's current field values.
func (f *Form) Values() Submission {
	var sub Submission
	f.doc.View(func(*html.Node) {
		read := func(name string) string {
			n := f.field(name)
			switch {
			case n == nil:
				return ""
			case n.Data == "textarea":
				return dom.TextContent(n)
			default:
				return dom.AttrOr(n, "value", "")
			}
		}
		sub = Submission{Name: read("name"), Email: read("email"), Message: read("message")}
	})
	return sub
}

// Submit sends the form's values and records the outcome on the form:
// data-state is "sent" or "error" and the status element gets a message.
// Sent forms are cleared.
func (f *Form) Submit(ctx context.Context, sender Sender) (*Receipt, error) {
	rc, err := sender.Submit(ctx, f.Values())
	if err != nil {
		f.logger.Warn("contact submission failed", "error", err)
		f.setState("error", "Sorry, your message could not be sent.")
		return nil, err
	}
	f.Fill(Submission{})
	f.setState("sent", "Thanks! Your message has been sent.")
	f.logger.Info("contact submission sent", "id", rc.ID)
	return rc, nil
}

// State returns the form's data-state attribute.
func (f *Form) State() string {
	var s string
	f.doc.View(func(*html.Node) { s = dom.AttrOr(f.el, "data-state", "") })
	return s
}

func (f *Form) setState(state, msg string) {
	f.doc.Update(func(*html.Node) {
		dom.SetAttr(f.el, "data-state", state)
		if f.status != nil {
			dom.SetText(f.status, msg)
		}
	})
}
