package catalog

// Playlist is a read-only projection of a Spotify playlist.
type Playlist struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	CoverImageURL string `json:"cover_image_url,omitempty"`
	TrackCount    int    `json:"track_count"`
}

// Track is a read-only projection of a Spotify track.
type Track struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ArtistName  string `json:"artist_name"`
	AlbumName   string `json:"album_name"`
	AlbumArtURL string `json:"album_art_url,omitempty"`
	PlayableURI string `json:"playable_uri"`
}
