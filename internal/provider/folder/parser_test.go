package folder

import "testing"

func TestParseFilename_TV(t *testing.T) {
	tests := []struct {
		filename string
		title    string
		season   int
		episode  int
	}{
		{"Breaking.Bad.S01E03.720p.x264.mkv", "Breaking Bad", 1, 3},
		{"The Wire 2x05.avi", "The Wire", 2, 5},
		{"show_name.s10e01.1080p.mkv", "show name", 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			parsed := ParseFilename(tt.filename)
			if !parsed.IsTV {
				t.Fatalf("expected %q to parse as TV", tt.filename)
			}
			if parsed.Title != tt.title {
				t.Errorf("Title = %q, want %q", parsed.Title, tt.title)
			}
			if parsed.Season != tt.season || parsed.Episode != tt.episode {
				t.Errorf("got S%dE%d, want S%dE%d", parsed.Season, parsed.Episode, tt.season, tt.episode)
			}
		})
	}
}

func TestParseFilename_Movie(t *testing.T) {
	tests := []struct {
		filename string
		title    string
		year     int
	}{
		{"The Matrix (1999).mkv", "The Matrix", 1999},
		{"Inception.2010.1080p.BluRay.mkv", "Inception", 2010},
		{"Heat.1995.mkv", "Heat", 1995},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			parsed := ParseFilename(tt.filename)
			if parsed.IsTV {
				t.Fatalf("expected %q to parse as movie", tt.filename)
			}
			if parsed.Title != tt.title {
				t.Errorf("Title = %q, want %q", parsed.Title, tt.title)
			}
			if parsed.Year != tt.year {
				t.Errorf("Year = %d, want %d", parsed.Year, tt.year)
			}
		})
	}
}

func TestParseFilename_TechInfo(t *testing.T) {
	parsed := ParseFilename("Dune.2021.2160p.HDR.x265.mkv")
	if parsed.Resolution != "2160p" {
		t.Errorf("Resolution = %q, want 2160p", parsed.Resolution)
	}
	if parsed.VideoCodec != "HEVC" {
		t.Errorf("VideoCodec = %q, want HEVC", parsed.VideoCodec)
	}
	if !parsed.HDR {
		t.Error("expected HDR flag")
	}
}

func TestParseFilename_NoMatch(t *testing.T) {
	parsed := ParseFilename("randomfile.mkv")
	if parsed.IsTV || parsed.Year != 0 {
		t.Errorf("unexpected structure from bare filename: %+v", parsed)
	}
	if parsed.Title != "randomfile" {
		t.Errorf("Title = %q, want randomfile", parsed.Title)
	}
}

func TestParsePath_BorrowsFolderYear(t *testing.T) {
	parsed := ParsePath("/movies/The Matrix (1999)/The.Matrix.1080p.BluRay.mkv")
	if parsed.Title != "The Matrix" {
		t.Errorf("Title = %q, want The Matrix", parsed.Title)
	}
	if parsed.Year != 1999 {
		t.Errorf("Year = %d, want 1999", parsed.Year)
	}
	if parsed.Resolution != "1080p" {
		t.Errorf("Resolution = %q, want 1080p", parsed.Resolution)
	}
}

func TestSplitTrackFileName(t *testing.T) {
	tests := []struct {
		name   string
		number int
		title  string
	}{
		{"03 - Time.flac", 3, "Time"},
		{"12. Eclipse.flac", 12, "Eclipse"},
		{"1 Speak to Me.mp3", 1, "Speak to Me"},
		{"No Number.flac", 0, "No Number"},
	}

	for _, tt := range tests {
		number, title := splitTrackFileName(tt.name)
		if number != tt.number || title != tt.title {
			t.Errorf("splitTrackFileName(%q) = (%d, %q), want (%d, %q)",
				tt.name, number, title, tt.number, tt.title)
		}
	}
}
