package moviebot

import (
	"maps"

	"github.com/randalmurphal/turngraph/pkg/turngraph/template"
)

// Message names. Config.Messages may override any of them.
const (
	MsgClarify         = "clarify"
	MsgTeach           = "teach"
	MsgTeachPrompt     = "teach_prompt"
	MsgRecommendHeader = "recommend_header"
	MsgRecommendItem   = "recommend_item"
	MsgTrivia          = "trivia"
	MsgNotFound        = "not_found"
	MsgCriticSystem    = "critic_system"
	MsgCriticPrompt    = "critic_prompt"
	MsgCriticFailed    = "critic_failed"
)

var defaultMessages = map[string]string{
	MsgClarify:         "どんなジャンルの映画がお好きですか？（例: SF, アクション, コメディ）",
	MsgTeach:           "『${term:-映画用語}』は映画に関する用語です。（詳しい説明をここに挿入）",
	MsgTeachPrompt:     "映画ファン向けに『${term}』とは何かを2〜3文の日本語で説明してください。",
	MsgRecommendHeader: "おすすめ映画はこちらです:",
	MsgRecommendItem:   "- ${title} (${year:-年不明}) — ${overview}",
	MsgTrivia:          "豆知識: ${snippet}",
	MsgNotFound:        "うまく見つかりませんでした。もう少し好みを教えてください！",
	MsgCriticSystem:    "あなたは映画評論家です。",
	MsgCriticPrompt:    "ユーザーは『${query}』に関連する映画を探しています。次の候補から日本語で５本おすすめし、それぞれの魅力を簡潔に説明してください。\n\n${list}",
	MsgCriticFailed:    "映画の紹介文を生成できませんでした。時間を置いて再度お試しください。",
}

// DefaultMessages returns a copy of the built-in message templates.
func DefaultMessages() map[string]string {
	return maps.Clone(defaultMessages)
}

// newMessages builds the catalog with overrides applied and checks that
// every message the steps render is present.
func newMessages(overrides map[string]string) (*template.Catalog, error) {
	c := template.NewCatalog(defaultMessages, template.WithSeparator("\n")).With(overrides)
	if err := c.Require(
		MsgClarify, MsgTeach, MsgTeachPrompt, MsgRecommendHeader, MsgRecommendItem,
		MsgTrivia, MsgNotFound, MsgCriticSystem, MsgCriticPrompt, MsgCriticFailed,
	); err != nil {
		return nil, err
	}
	return c, nil
}
