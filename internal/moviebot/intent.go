package moviebot

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/randalmurphal/turngraph/internal/tmdb"
)

// DefaultTerm is used when the user asks "what is" without naming a term.
const DefaultTerm = "用語"

// Intent is what a single message says.
type Intent struct {
	Liked    []int
	Disliked []int
	// Term is set when the message asks what a word means.
	Term      string
	MinRating float64
}

// Empty reports whether the message carried nothing usable.
func (in Intent) Empty() bool {
	return len(in.Liked) == 0 && len(in.Disliked) == 0 && in.Term == "" && in.MinRating == 0
}

var genrePatterns = []struct {
	genre int
	re    *regexp.Regexp
}{
	{tmdb.GenreSciFi, regexp.MustCompile(`(?i)sf|sci[- ]?fi|ＳＦ|エスエフ`)},
	{tmdb.GenreAction, regexp.MustCompile(`(?i)アクション|action`)},
	{tmdb.GenreComedy, regexp.MustCompile(`(?i)コメディ|喜劇|笑える|comedy`)},
	{tmdb.GenreHorror, regexp.MustCompile(`(?i)ホラー|怖い|horror`)},
	{tmdb.GenreAnimation, regexp.MustCompile(`(?i)アニメ|anime`)},
	{tmdb.GenreRomance, regexp.MustCompile(`(?i)恋愛|ロマンス|ラブストーリー|romance`)},
	{tmdb.GenreDrama, regexp.MustCompile(`(?i)ドラマ|drama`)},
}

var (
	whatIs      = regexp.MustCompile(`(.*?)(って何|とは何|とは？|とは)\??`)
	minRating   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*点以上`)
	dislikeWord = regexp.MustCompile(`嫌|苦手|無理|以外|じゃない`)
	clauseBreak = regexp.MustCompile(`[、。，．,.!?！？\n]|けど|けれど|だが`)
)

type genreHit struct {
	genre      int
	start, end int
}

// ParseIntent extracts genre likes and dislikes, a rating floor and a
// "what is" question from message.
//
// A genre counts as disliked when a dislike word follows it before the
// next genre mention or clause break.
func ParseIntent(message string) Intent {
	var in Intent

	if m := whatIs.FindStringSubmatch(message); m != nil {
		term := strings.TrimSpace(m[1])
		term = strings.Trim(term, "「」『』\"'")
		if term == "" {
			term = DefaultTerm
		}
		in.Term = term
	}

	if m := minRating.FindStringSubmatch(message); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			in.MinRating = f
		}
	}

	var hits []genreHit
	for _, gp := range genrePatterns {
		for _, loc := range gp.re.FindAllStringIndex(message, -1) {
			hits = append(hits, genreHit{genre: gp.genre, start: loc[0], end: loc[1]})
		}
	}
	slices.SortFunc(hits, func(a, b genreHit) int { return a.start - b.start })

	for i, h := range hits {
		tail := message[h.end:]
		if i+1 < len(hits) {
			tail = message[h.end:hits[i+1].start]
		}
		if loc := clauseBreak.FindStringIndex(tail); loc != nil {
			tail = tail[:loc[0]]
		}
		if dislikeWord.MatchString(tail) {
			in.Disliked = appendUnique(in.Disliked, h.genre)
		} else {
			in.Liked = appendUnique(in.Liked, h.genre)
		}
	}
	// A genre both liked and disliked in one message counts as disliked.
	in.Liked = slices.DeleteFunc(in.Liked, func(g int) bool { return slices.Contains(in.Disliked, g) })
	if len(in.Liked) == 0 {
		in.Liked = nil
	}
	return in
}

func appendUnique(s []int, v int) []int {
	if slices.Contains(s, v) {
		return s
	}
	return append(s, v)
}
