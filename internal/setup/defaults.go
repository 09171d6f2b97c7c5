package setup

// DefaultSong is the public-domain track every catalog starts with: the
// United States Marine Band recording of "We Wish You A Merry Christmas"
// from the Internet Archive.
var DefaultSong = struct {
	ID       string
	Title    string
	Artist   string
	Filename string
	URL      string
	Duration float64
	Lyrics   string
}{
	ID:       "merry_christmas",
	Title:    "We Wish You A Merry Christmas",
	Artist:   "US Marine Band",
	Filename: "merry_christmas_marine.mp3",
	URL:      "https://archive.org/download/Holiday_Music_Selections-10648/United_States_Marine_Band_-_We_Wish_You_a_Merry_Christmas.mp3",
	Duration: 60,
	// The intro runs for about 14 seconds.
	Lyrics: `[00:14.00] We wish you a Merry Christmas
[00:16.50] We wish you a Merry Christmas
[00:18.50] We wish you a Merry Christmas
[00:21.00] And a Happy New Year
[00:23.00] Good tidings we bring
[00:25.50] To you and your kin
[00:28.00] Good tidings for Christmas
[00:30.50] And a Happy New Year
[00:32.50] (Instrumental Break)
[00:42.00] Now bring us some figgy pudding
[00:44.50] Now bring us some figgy pudding
[00:46.50] Now bring us some figgy pudding
[00:49.00] And a cup of good cheer
[00:51.00] We won't go until we get some
[00:53.50] We won't go until we get some
[00:55.50] We won't go until we get some
[00:58.00] So bring it right here`,
}
