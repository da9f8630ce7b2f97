// Spotify Web API implementation of [MetadataService] and [CredentialProvider]
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/desertthunder/podspot/internal/models"
	"github.com/desertthunder/podspot/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	likedPageSize = 50

	// defaultRateLimit caps Web API requests per second; liked-songs paging
	// in particular can issue many calls back to back.
	defaultRateLimit = 5.0
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbumTrack represents a track within an album listing.
type SpotifyAlbumTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	TrackNumber int             `json:"track_number"`
	Artists     []SpotifyArtist `json:"artists"`
}

type albumTracks struct {
	Total int                 `json:"total"`
	Items []SpotifyAlbumTrack `json:"items"`
}

// SpotifyAlbum represents a Spotify album with its track listing.
type SpotifyAlbum struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	Tracks  albumTracks     `json:"tracks"`
	Images  []SpotifyImage  `json:"images"`
}

// SpotifyTrack represents a full Spotify track object.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	TrackNumber int             `json:"track_number"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       SpotifyAlbum    `json:"album"`
}

type owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

type playlistTracks struct {
	Total int                    `json:"total"`
	Items []SpotifyPlaylistTrack `json:"items"`
}

// SpotifyPlaylist represents a Spotify playlist with its track listing.
type SpotifyPlaylist struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Owner  owner          `json:"owner"`
	Tracks playlistTracks `json:"tracks"`
	Images []SpotifyImage `json:"images"`
}

// SpotifySavedTrack represents a track saved in the user's library.
type SpotifySavedTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifySavedTracksPage represents a paginated response of saved tracks.
type SpotifySavedTracksPage struct {
	Items  []SpotifySavedTrack `json:"items"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
	Next   *string             `json:"next"`
}

// SpotifyService talks to the Spotify Web API.
//
// User authentication uses [oauth2]; public metadata uses the
// client-credentials flow so albums and single tracks work before login.
type SpotifyService struct {
	config     *oauth2.Config
	appConfig  *clientcredentials.Config
	httpClient *http.Client
	limiter    *rate.Limiter

	mu       sync.Mutex
	token    *oauth2.Token
	appToken *oauth2.Token
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("missing client_id in credentials")
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("missing client_secret in credentials")
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://127.0.0.1:8888/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"playlist-read-private",
			"playlist-read-collaborative",
			"user-library-read",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	appConfig := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyTokenURL,
	}

	return &SpotifyService{
		config:     config,
		appConfig:  appConfig,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), 1),
	}, nil
}

// SetRateLimit adjusts the per-second cap on Web API requests.
func (s *SpotifyService) SetRateLimit(rps float64) {
	if rps <= 0 {
		rps = defaultRateLimit
	}
	s.limiter.SetLimit(rate.Limit(rps))
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig returns the OAuth2 configuration for the callback handler.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// OAuthenticate installs a user token obtained from the authorization flow.
func (s *SpotifyService) OAuthenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", shared.ErrAuthFailed)
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// Token returns the current user token, refreshing it when expired.
// Implements [CredentialProvider].
func (s *SpotifyService) Token(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	if token == nil {
		return nil, shared.ErrNotAuthenticated
	}
	if token.Valid() {
		return token, nil
	}
	return s.Refresh(ctx)
}

// Refresh exchanges the stored refresh token for a new access token.
func (s *SpotifyService) Refresh(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	if token == nil || token.RefreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	refreshed, err := s.config.TokenSource(ctx, token).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = token.RefreshToken
	}

	s.mu.Lock()
	s.token = refreshed
	s.mu.Unlock()
	return refreshed, nil
}

// appAccessToken returns a client-credentials token for public metadata,
// requesting a new one when the cached token has expired.
func (s *SpotifyService) appAccessToken(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	cached := s.appToken
	s.mu.Unlock()

	if cached != nil && cached.Valid() {
		return cached, nil
	}

	token, err := s.appConfig.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	s.mu.Lock()
	s.appToken = token
	s.mu.Unlock()
	return token, nil
}

// doRequest performs an authenticated GET against the Spotify API.
//
// userScoped selects between the user token and the application token.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, userScoped bool, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	var token *oauth2.Token
	var err error
	if userScoped {
		token, err = s.Token(ctx)
	} else {
		token, err = s.appAccessToken(ctx)
	}
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spotifyBaseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return shared.ErrTokenExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: spotify API status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Album retrieves an album with its track listing.
func (s *SpotifyService) Album(ctx context.Context, albumID string) (*SpotifyAlbum, error) {
	var album SpotifyAlbum
	if err := s.doRequest(ctx, fmt.Sprintf("/albums/%s", albumID), false, &album); err != nil {
		return nil, err
	}
	return &album, nil
}

// Track retrieves a single track by ID.
func (s *SpotifyService) Track(ctx context.Context, trackID string) (*SpotifyTrack, error) {
	var track SpotifyTrack
	if err := s.doRequest(ctx, fmt.Sprintf("/tracks/%s", trackID), false, &track); err != nil {
		return nil, err
	}
	return &track, nil
}

// Playlist retrieves a playlist by ID. Requires a user token for private playlists.
func (s *SpotifyService) Playlist(ctx context.Context, playlistID string) (*SpotifyPlaylist, error) {
	var playlist SpotifyPlaylist
	if err := s.doRequest(ctx, fmt.Sprintf("/playlists/%s", playlistID), true, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// SavedTracks retrieves one page of the user's saved tracks.
func (s *SpotifyService) SavedTracks(ctx context.Context, limit, offset int) (*SpotifySavedTracksPage, error) {
	if limit <= 0 || limit > likedPageSize {
		limit = likedPageSize
	}

	var page SpotifySavedTracksPage
	endpoint := fmt.Sprintf("/me/tracks?limit=%d&offset=%d", limit, offset)
	if err := s.doRequest(ctx, endpoint, true, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ResolveTarget fetches metadata for a dispatchable target.
func (s *SpotifyService) ResolveTarget(ctx context.Context, target models.Target) (*models.TargetMeta, error) {
	switch target.Kind {
	case models.KindAlbum:
		return s.albumMeta(ctx, target.ID)
	case models.KindTrack:
		return s.trackMeta(ctx, target.ID)
	case models.KindPlaylist:
		return s.playlistMeta(ctx, target.ID)
	case models.KindLiked:
		return s.likedMeta(ctx)
	default:
		return nil, fmt.Errorf("%w: cannot resolve %q", shared.ErrInvalidArgument, target.Kind)
	}
}

func (s *SpotifyService) albumMeta(ctx context.Context, albumID string) (*models.TargetMeta, error) {
	album, err := s.Album(ctx, albumID)
	if err != nil {
		return nil, err
	}

	meta := &models.TargetMeta{
		Artist:     joinArtists(album.Artists),
		Album:      album.Name,
		ArtworkURL: firstImage(album.Images),
	}
	for _, t := range album.Tracks.Items {
		meta.Tracks = append(meta.Tracks, models.TrackMeta{
			Number:  t.TrackNumber,
			Title:   t.Name,
			Artists: joinArtists(t.Artists),
			Album:   album.Name,
		})
	}
	return meta, nil
}

func (s *SpotifyService) trackMeta(ctx context.Context, trackID string) (*models.TargetMeta, error) {
	track, err := s.Track(ctx, trackID)
	if err != nil {
		return nil, err
	}

	artists := joinArtists(track.Artists)
	return &models.TargetMeta{
		Artist:     artists,
		Album:      track.Album.Name,
		ArtworkURL: firstImage(track.Album.Images),
		Tracks: []models.TrackMeta{{
			Number:  1,
			Title:   track.Name,
			Artists: artists,
			Album:   track.Album.Name,
		}},
	}, nil
}

func (s *SpotifyService) playlistMeta(ctx context.Context, playlistID string) (*models.TargetMeta, error) {
	playlist, err := s.Playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	meta := &models.TargetMeta{
		Artist:     playlist.Owner.DisplayName,
		Album:      playlist.Name,
		ArtworkURL: firstImage(playlist.Images),
	}
	number := 0
	for _, item := range playlist.Tracks.Items {
		if item.Track == nil {
			continue
		}
		number++
		meta.Tracks = append(meta.Tracks, models.TrackMeta{
			Number:  number,
			Title:   item.Track.Name,
			Artists: joinArtists(item.Track.Artists),
			Album:   playlist.Name,
		})
	}
	return meta, nil
}

func (s *SpotifyService) likedMeta(ctx context.Context) (*models.TargetMeta, error) {
	meta := &models.TargetMeta{
		Artist: "Liked Songs",
		Album:  "Spotify Liked Songs",
	}

	offset := 0
	number := 0
	for {
		page, err := s.SavedTracks(ctx, likedPageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			number++
			meta.Tracks = append(meta.Tracks, models.TrackMeta{
				Number:  number,
				Title:   item.Track.Name,
				Artists: joinArtists(item.Track.Artists),
				Album:   item.Track.Album.Name,
			})
		}
		if page.Next == nil || len(page.Items) == 0 {
			break
		}
		offset += likedPageSize
	}
	return meta, nil
}

func joinArtists(artists []SpotifyArtist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

func firstImage(images []SpotifyImage) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}
