package slack

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/slack-go/slack"
)

const (
	maxHeaderLen  = 150
	maxSectionLen = 3000
)

// Share is a refined brief ready to post.
type Share struct {
	Title    string
	Score    *float64
	Markdown string
}

// Publisher posts refined briefs to one channel.
type Publisher struct {
	api     *slack.Client
	channel string
	botID   string
}

func NewPublisher(token, channel string, opts ...slack.Option) *Publisher {
	return &Publisher{
		api:     slack.New(token, opts...),
		channel: channel,
	}
}

// Verify checks the token and remembers the bot user.
func (p *Publisher) Verify(ctx context.Context) error {
	authTest, err := p.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to authenticate with Slack: %w", err)
	}
	p.botID = authTest.UserID
	return nil
}

func (p *Publisher) BotID() string {
	return p.botID
}

// ShareBrief posts the brief and returns the message timestamp.
func (p *Publisher) ShareBrief(ctx context.Context, share Share) (string, error) {
	if strings.TrimSpace(share.Markdown) == "" {
		return "", fmt.Errorf("nothing to share")
	}

	_, ts, err := p.api.PostMessageContext(
		ctx,
		p.channel,
		slack.MsgOptionText(titleOf(share), false),
		slack.MsgOptionBlocks(BuildBlocks(share)...),
	)
	if err != nil {
		return "", fmt.Errorf("failed to post brief: %w", err)
	}

	log.Printf("📤 shared brief %q to %s", share.Title, p.channel)
	return ts, nil
}

// BuildBlocks lays out header, score and the brief body.
func BuildBlocks(share Share) []slack.Block {
	header := truncate(titleOf(share), maxHeaderLen)
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, header, true, false)),
	}

	if share.Score != nil {
		score := fmt.Sprintf("Score: *%s/10*", strings.TrimSuffix(fmt.Sprintf("%.1f", *share.Score), ".0"))
		blocks = append(blocks, slack.NewContextBlock("", slack.NewTextBlockObject(slack.MarkdownType, score, false, false)))
	}
	blocks = append(blocks, slack.NewDividerBlock())

	for _, chunk := range chunks(ToMrkdwn(share.Markdown), maxSectionLen) {
		text := slack.NewTextBlockObject(slack.MarkdownType, chunk, false, false)
		blocks = append(blocks, slack.NewSectionBlock(text, nil, nil))
	}
	return blocks
}

var (
	headingPattern = regexp.MustCompile(`(?m)^#{1,3} (.*)$`)
	boldPattern    = regexp.MustCompile(`\*\*(.*?)\*\*`)
	bulletPattern  = regexp.MustCompile(`(?m)^- `)
)

// ToMrkdwn rewrites the brief Markdown subset into Slack's mrkdwn.
func ToMrkdwn(md string) string {
	out := boldPattern.ReplaceAllString(md, "*$1*")
	out = headingPattern.ReplaceAllString(out, "*$1*")
	return bulletPattern.ReplaceAllString(out, "• ")
}

func titleOf(share Share) string {
	if t := strings.TrimSpace(share.Title); t != "" {
		return t
	}
	return "Untitled Brief"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// chunks splits on line boundaries so no piece exceeds n runes.
func chunks(s string, n int) []string {
	var out []string
	var cur strings.Builder
	curLen := 0
	for _, line := range strings.Split(s, "\n") {
		lineLen := len([]rune(line)) + 1
		if curLen > 0 && curLen+lineLen > n {
			out = append(out, strings.TrimRight(cur.String(), "\n"))
			cur.Reset()
			curLen = 0
		}
		for lineLen > n {
			r := []rune(line)
			out = append(out, string(r[:n]))
			line = string(r[n:])
			lineLen = len([]rune(line)) + 1
		}
		cur.WriteString(line)
		cur.WriteString("\n")
		curLen += lineLen
	}
	if rest := strings.TrimRight(cur.String(), "\n"); rest != "" {
		out = append(out, rest)
	}
	return out
}
