package moviebot

import (
	"fmt"
	"slices"

	"github.com/mitchellh/mapstructure"
)

// Profile holds the preferences gathered over a conversation.
type Profile struct {
	LikedGenres    []int   `mapstructure:"liked_genres" json:"liked_genres,omitempty"`
	DislikedGenres []int   `mapstructure:"disliked_genres" json:"disliked_genres,omitempty"`
	Language       string  `mapstructure:"language" json:"language,omitempty"`
	MinRating      float64 `mapstructure:"min_rating" json:"min_rating,omitempty"`
}

// Empty reports whether no genre preference is known.
func (p Profile) Empty() bool {
	return len(p.LikedGenres) == 0 && len(p.DislikedGenres) == 0
}

// Merge folds newly parsed preferences into p. A genre moves between the
// liked and disliked lists when the user changes their mind.
func (p Profile) Merge(in Intent) Profile {
	out := Profile{
		LikedGenres:    slices.Clone(p.LikedGenres),
		DislikedGenres: slices.Clone(p.DislikedGenres),
		Language:       p.Language,
		MinRating:      p.MinRating,
	}
	for _, g := range in.Liked {
		out.DislikedGenres = slices.DeleteFunc(out.DislikedGenres, func(x int) bool { return x == g })
		if !slices.Contains(out.LikedGenres, g) {
			out.LikedGenres = append(out.LikedGenres, g)
		}
	}
	for _, g := range in.Disliked {
		out.LikedGenres = slices.DeleteFunc(out.LikedGenres, func(x int) bool { return x == g })
		if !slices.Contains(out.DislikedGenres, g) {
			out.DislikedGenres = append(out.DislikedGenres, g)
		}
	}
	if in.MinRating > 0 {
		out.MinRating = in.MinRating
	}
	return out
}

// DecodeProfile converts a stored value into a Profile. It accepts a
// Profile, a pointer to one, or the generic map produced by decoding JSON.
// nil decodes to the zero Profile.
func DecodeProfile(v any) (Profile, error) {
	switch p := v.(type) {
	case nil:
		return Profile{}, nil
	case Profile:
		return p, nil
	case *Profile:
		if p == nil {
			return Profile{}, nil
		}
		return *p, nil
	}

	var out Profile
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Profile{}, fmt.Errorf("create profile decoder: %w", err)
	}
	if err := dec.Decode(v); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return out, nil
}
