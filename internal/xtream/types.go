package xtream

import "encoding/json"

// Category is a live/VOD/series group in the catalog.
type Category struct {
	ID   string `json:"category_id"`
	Name string `json:"category_name"`
}

// LiveStream is a live channel listing.
type LiveStream struct {
	ID         json.Number `json:"stream_id"`
	Name       string      `json:"name"`
	Icon       string      `json:"stream_icon"`
	CategoryID string      `json:"category_id"`
}

// VODItem is a movie listing. Numeric fields use json.Number because
// providers disagree on whether they are numbers or strings.
type VODItem struct {
	ID          json.Number `json:"stream_id"`
	Name        string      `json:"name"`
	Icon        string      `json:"stream_icon"`
	Container   string      `json:"container_extension"`
	Plot        string      `json:"plot"`
	ReleaseDate string      `json:"releasedate"`
	Duration    string      `json:"duration"`
	Genre       string      `json:"genre"`
	Rating      json.Number `json:"rating"`
	Added       string      `json:"added"`
	CategoryID  string      `json:"category_id"`
}

// SeriesItem is a series listing.
type SeriesItem struct {
	ID           json.Number `json:"series_id"`
	Name         string      `json:"name"`
	Cover        string      `json:"cover"`
	Plot         string      `json:"plot"`
	ReleaseDate  string      `json:"releaseDate"`
	Genre        string      `json:"genre"`
	Rating       json.Number `json:"rating"`
	LastModified string      `json:"last_modified"`
	CategoryID   string      `json:"category_id"`
}

// Episode is one episode inside a season, as returned by get_series_info.
type Episode struct {
	ID         json.Number `json:"id"`
	Title      string      `json:"title"`
	Container  string      `json:"container_extension"`
	Season     int         `json:"season"`
	EpisodeNum int         `json:"episode_num"`
	Info       struct {
		Plot     string `json:"plot"`
		Duration string `json:"duration"`
	} `json:"info"`
}

// SeriesInfo is the full series detail: metadata plus episodes keyed by
// season number.
type SeriesInfo struct {
	Info     SeriesItem           `json:"info"`
	Episodes map[string][]Episode `json:"episodes"`
}

// SubtitleTrack is an external subtitle attached to a VOD item.
type SubtitleTrack struct {
	Language string `json:"language"`
	URL      string `json:"url"`
	Format   string `json:"format"`
}

// VODInfo is the full movie detail.
type VODInfo struct {
	Info struct {
		Plot            string `json:"plot"`
		Duration        string `json:"duration"`
		YoutubeTrailer  string `json:"youtube_trailer"`
		MovieImage      string `json:"movie_image"`
		ReleaseDate     string `json:"releasedate"`
		Genre           string `json:"genre"`
		DirectorInfo    string `json:"director"`
		CastInfo        string `json:"cast"`
		ContainerHinted string `json:"container_extension"`
	} `json:"info"`
	MovieData struct {
		Name      string          `json:"name"`
		Container string          `json:"container_extension"`
		Subtitles []SubtitleTrack `json:"subtitles"`
	} `json:"movie_data"`
}

// UserInfo is the account state reported by the provider.
type UserInfo struct {
	Username       string      `json:"username"`
	Status         string      `json:"status"`
	ExpDate        string      `json:"exp_date"`
	ActiveCons     json.Number `json:"active_cons"`
	MaxConnections json.Number `json:"max_connections"`
	IsTrial        json.Number `json:"is_trial"`
}

// ServerInfo describes the remote server.
type ServerInfo struct {
	URL      string `json:"url"`
	Port     string `json:"port"`
	Protocol string `json:"server_protocol"`
	Timezone string `json:"timezone"`
	TimeNow  string `json:"time_now"`
}

// Account is the authentication handshake payload.
type Account struct {
	UserInfo   UserInfo   `json:"user_info"`
	ServerInfo ServerInfo `json:"server_info"`
}

// EPGListing is one programme entry from the short EPG. Title and
// description arrive base64-encoded on the wire.
type EPGListing struct {
	ID          json.Number `json:"id"`
	Title       string      `json:"title"`
	Start       string      `json:"start"`
	End         string      `json:"end"`
	Description string      `json:"description"`
}

// SearchResults groups catalog matches by section.
type SearchResults struct {
	Live   []LiveStream `json:"live"`
	VOD    []VODItem    `json:"vod"`
	Series []SeriesItem `json:"series"`
}
