package notify

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/insyd/insyd/internal/models"
	"github.com/insyd/insyd/pkg/mail"
)

const excerptLength = 200

var emailLayout = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.5; color: #1f2933;">
<h2>{{.Heading}}</h2>
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}{{if .Excerpt}}<blockquote style="border-left: 3px solid #d0d7de; margin: 0; padding-left: 12px; color: #52606d;">{{.Excerpt}}</blockquote>
{{end}}{{if .Link}}<p><a href="{{.Link}}">Open {{.AppName}}</a></p>
{{end}}{{if .Footer}}<p style="font-size: 12px; color: #7b8794;">{{.Footer}}</p>
{{end}}</body>
</html>
`))

type emailContent struct {
	Subject    string
	Heading    string
	Paragraphs []string
	Excerpt    string
	Footer     string
	Link       string
	AppName    string
}

// Renderer produces notification text and email bodies.
type Renderer struct {
	appName   string
	publicURL string
	policy    *bluemonday.Policy
}

// NewRenderer builds a Renderer. publicURL is linked from every email when set.
func NewRenderer(appName, publicURL string) *Renderer {
	if strings.TrimSpace(appName) == "" {
		appName = "Insyd"
	}
	return &Renderer{
		appName:   appName,
		publicURL: strings.TrimRight(strings.TrimSpace(publicURL), "/"),
		policy:    bluemonday.StrictPolicy(),
	}
}

// Notification returns the inbox title and message for ev.
func (r *Renderer) Notification(ev Event) (title, message string) {
	actor := ev.Actor.Email
	subject := ev.Subject

	switch ev.Type {
	case models.NotificationNewBlog:
		return "New Blog Post", fmt.Sprintf("%s posted a new blog: %s", actor, subject.Title)
	case models.NotificationNewJob:
		return "New Job: " + subject.Title, fmt.Sprintf("%s posted a new job: %s at %s", actor, subject.Title, subject.Company)
	case models.NotificationLike:
		return "Blog Liked", fmt.Sprintf("%s liked your blog: %s", actor, subject.Title)
	case models.NotificationApplication:
		return "Job Application", fmt.Sprintf("%s applied to your job: %s at %s", actor, subject.Title, subject.Company)
	case models.NotificationFollow:
		return "New Follower", fmt.Sprintf("%s is now following you", actor)
	case models.NotificationContentRemoved:
		return "Content Removed", fmt.Sprintf("%s was removed by its author", subject.Title)
	default:
		return "Notification", actor
	}
}

// Email renders the message sent to recipient for ev.
func (r *Renderer) Email(ev Event, recipient models.User, scope Scope) mail.Message {
	actor := ev.Actor.Email
	subject := ev.Subject

	footer := fmt.Sprintf("You received this because you follow %s.", actor)
	if scope == ScopeEveryone {
		footer = fmt.Sprintf("You received this because you are a member of %s.", r.appName)
	}

	var content emailContent
	switch ev.Type {
	case models.NotificationNewBlog:
		content = emailContent{
			Subject:    "New Blog Post from Someone You Follow",
			Heading:    "New Blog Post",
			Paragraphs: []string{fmt.Sprintf("%s just published a new blog post: %s", actor, subject.Title)},
			Excerpt:    r.Excerpt(subject.Content),
			Footer:     footer,
		}
		if scope == ScopeEveryone {
			content.Subject = fmt.Sprintf("New Blog Post on %s", r.appName)
		}
	case models.NotificationNewJob:
		content = emailContent{
			Subject:    fmt.Sprintf("New Job Opportunity: %s at %s", subject.Title, subject.Company),
			Heading:    "New Job Opportunity",
			Paragraphs: []string{fmt.Sprintf("%s posted a new job: %s at %s", actor, subject.Title, subject.Company)},
			Footer:     footer,
		}
	case models.NotificationLike:
		content = emailContent{
			Subject:    "Someone liked your blog!",
			Heading:    "Your blog got a like",
			Paragraphs: []string{fmt.Sprintf("%s liked your blog: %s", actor, subject.Title)},
		}
	case models.NotificationApplication:
		content = emailContent{
			Subject:    "New Job Application!",
			Heading:    "New Job Application",
			Paragraphs: []string{fmt.Sprintf("%s applied to your job: %s at %s", actor, subject.Title, subject.Company)},
		}
	case models.NotificationFollow:
		content = emailContent{
			Subject:    fmt.Sprintf("You have a new follower on %s!", r.appName),
			Heading:    "New Follower",
			Paragraphs: []string{fmt.Sprintf("%s is now following you.", actor)},
		}
	case models.NotificationContentRemoved:
		content = emailContent{
			Subject:    "Something you interacted with was removed",
			Heading:    "Content Removed",
			Paragraphs: []string{fmt.Sprintf("%s was removed by its author.", subject.Title)},
		}
	default:
		title, message := r.Notification(ev)
		content = emailContent{Subject: title, Heading: title, Paragraphs: []string{message}}
	}

	return r.compose(recipient.Email, content)
}

// Welcome renders the first-registration email.
func (r *Renderer) Welcome(user models.User) mail.Message {
	return r.compose(user.Email, emailContent{
		Subject: fmt.Sprintf("Welcome to %s!", r.appName),
		Heading: fmt.Sprintf("Welcome to %s", r.appName),
		Paragraphs: []string{
			fmt.Sprintf("Hi %s, your account is ready.", user.DisplayName()),
			"Follow people to hear about their new blogs and job posts.",
		},
	})
}

// Excerpt strips markup from content and shortens it for previews.
func (r *Renderer) Excerpt(content string) string {
	plain := html.UnescapeString(r.policy.Sanitize(content))
	plain = strings.Join(strings.Fields(plain), " ")
	if utf8.RuneCountInString(plain) <= excerptLength {
		return plain
	}
	runes := []rune(plain)
	return strings.TrimSpace(string(runes[:excerptLength])) + "..."
}

func (r *Renderer) compose(to string, content emailContent) mail.Message {
	content.AppName = r.appName
	content.Link = r.publicURL

	var text strings.Builder
	text.WriteString(content.Heading)
	text.WriteString("\n\n")
	for _, p := range content.Paragraphs {
		text.WriteString(p)
		text.WriteString("\n\n")
	}
	if content.Excerpt != "" {
		text.WriteString(content.Excerpt)
		text.WriteString("\n\n")
	}
	if content.Link != "" {
		text.WriteString(content.Link)
		text.WriteString("\n\n")
	}
	if content.Footer != "" {
		text.WriteString(content.Footer)
		text.WriteString("\n")
	}

	msg := mail.Message{
		To:      []string{to},
		Subject: content.Subject,
		Body:    strings.TrimRight(text.String(), "\n"),
	}

	var buf bytes.Buffer
	if err := emailLayout.Execute(&buf, content); err == nil {
		msg.HTMLBody = buf.String()
	}
	return msg
}
