package models

import "testing"

func TestQuery(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		tests := []struct {
			query Query
			want  bool
		}{
			{"", false},
			{"   ", false},
			{" a ", false},
			{"ab", true},
			{"日本", true},
			{"é", false},
		}
		for _, tt := range tests {
			if got := tt.query.Valid(); got != tt.want {
				t.Errorf("Query(%q).Valid() = %v, want %v", tt.query, got, tt.want)
			}
		}
	})

	t.Run("Classify", func(t *testing.T) {
		domains := []string{"spotify.com"}
		tests := []struct {
			query Query
			want  LinkKind
		}{
			{"bohemian rhapsody", PlainText},
			{"https://open.spotify.com/track/abc", StreamingServiceLink},
			{"HTTPS://OPEN.SPOTIFY.COM/track/abc", StreamingServiceLink},
			{"listen: open.spotify.com/album/x?si=1", StreamingServiceLink},
			{"spotify", PlainText},
		}
		for _, tt := range tests {
			if got := tt.query.Classify(domains); got != tt.want {
				t.Errorf("Query(%q).Classify() = %v, want %v", tt.query, got, tt.want)
			}
		}
	})

	t.Run("Classify with no domains", func(t *testing.T) {
		if got := Query("https://open.spotify.com/track/abc").Classify(nil); got != PlainText {
			t.Errorf("expected PlainText, got %v", got)
		}
	})
}

func TestCandidateList(t *testing.T) {
	list := CandidateList{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	t.Run("Cap", func(t *testing.T) {
		if got := list.Cap(2); len(got) != 2 || got[1].ID != "b" {
			t.Errorf("Cap(2) = %v", got)
		}
		if got := list.Cap(10); len(got) != 3 {
			t.Errorf("Cap(10) = %v", got)
		}
		if got := list.Cap(-1); len(got) != 0 {
			t.Errorf("Cap(-1) = %v", got)
		}

		capped := list.Cap(1)
		capped[0].ID = "changed"
		if list[0].ID != "a" {
			t.Error("Cap must not alias the receiver")
		}
	})

	t.Run("At", func(t *testing.T) {
		if c, ok := list.At(2); !ok || c.ID != "c" {
			t.Errorf("At(2) = %v, %v", c, ok)
		}
		for _, i := range []int{-1, 3} {
			if _, ok := list.At(i); ok {
				t.Errorf("At(%d) should be out of range", i)
			}
		}
	})
}

func TestStrings(t *testing.T) {
	if PlainText.String() != "plain_text" || StreamingServiceLink.String() != "streaming_link" {
		t.Error("unexpected LinkKind names")
	}
	if TrackLink.String() != "track" || PlaylistLink.String() != "playlist" || UnknownCategory.String() != "unknown" {
		t.Error("unexpected LinkCategory names")
	}
}
