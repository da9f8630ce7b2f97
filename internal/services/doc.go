// Package services implements clients for the streaming provider's Web API.
//
// The package exposes three capability interfaces consumed by the dispatch
// pipeline and the CLI layer:
//
//   - [CredentialProvider] : yields a valid user access token, refreshing it
//     in place when expired
//   - [MetadataService] : resolves a classified target to the artist, album,
//     track list, and artwork URL used for output naming and tagging
//   - [OAuthService] : the browser-based authorization flow surface used by
//     the auth command
//
// [SpotifyService] implements all three. Public targets (albums, single
// tracks) are served with an application token from the client-credentials
// flow; playlists and the liked-songs collection require a user token from
// the authorization-code flow.
package services
