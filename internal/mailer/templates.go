package mailer

import (
	"bytes"
	"fmt"
	"text/template"
)

type mailTemplate struct {
	subject *template.Template
	body    *template.Template
}

func mustTemplate(name, subject, body string) mailTemplate {
	return mailTemplate{
		subject: template.Must(template.New(name + ".subject").Parse(subject)),
		body:    template.Must(template.New(name + ".body").Parse(body)),
	}
}

var templates = map[string]mailTemplate{
	"intent_created": mustTemplate("intent_created",
		`Someone wants to buy "{{.listing_name}}"`,
		`Hello {{.recipient_name}},

A member of your kindergarten is interested in buying "{{.listing_name}}".
Open the listing to see who it is and start the transaction when you are ready.
`),
	"transaction_started": mustTemplate("transaction_started",
		`Your purchase of "{{.listing_name}}" has started`,
		`Hello {{.recipient_name}},

The seller of "{{.listing_name}}" chose you as the buyer.
Price: {{.price}} yen.
Please arrange the hand-over through the comment thread.
`),
	"transaction_completed": mustTemplate("transaction_completed",
		`"{{.listing_name}}" is yours`,
		`Hello {{.recipient_name}},

The seller marked "{{.listing_name}}" as sold to you. Thank you for using kinder-market.
`),
	"comment_posted": mustTemplate("comment_posted",
		`New comment on "{{.listing_name}}"`,
		`Hello {{.recipient_name}},

A new comment was posted on your listing "{{.listing_name}}":

{{.comment}}
`),
}

// Render fills the named template with data.
func Render(name string, data map[string]any) (subject, body string, err error) {
	t, ok := templates[name]
	if !ok {
		return "", "", fmt.Errorf("unknown mail template %q", name)
	}
	var sb, bb bytes.Buffer
	if err := t.subject.Execute(&sb, data); err != nil {
		return "", "", err
	}
	if err := t.body.Execute(&bb, data); err != nil {
		return "", "", err
	}
	return sb.String(), bb.String(), nil
}
