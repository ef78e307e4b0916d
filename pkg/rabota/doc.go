// Package rabota is a client for the Rabota.ru API.
//
// The API uses an OAuth2-like authorization code flow with a few
// provider-specific twists:
//   - The access token travels in the X-Token header, not Authorization
//   - Token refresh is authenticated by a request signature instead of a
//     refresh token
//   - Signatures are the SHA-256 of the JSON-encoded parameters followed by
//     the application secret
//   - Errors come back as {"error", "description"} or {"code", "error"}
//
// # Authorization
//
//	client, err := rabota.New(appID, secret)
//	if err != nil {
//		log.Fatal(err)
//	}
//	// Send the user here; they come back to redirect with ?code=...
//	authURL := client.AuthenticationURL(redirect, rabota.DisplayPage, nil)
//	// Exchange the code for an access token stored on the client
//	_, err = client.RequestToken(ctx, code)
//
// # Calling the API
//
//	resp, err := client.Fetch(ctx, "/v4/me.json", rabota.Params{}, rabota.MethodPost, false)
//	var apiErr *rabota.APIError
//	if errors.As(err, &apiErr) {
//		log.Printf("api error %s: %s", apiErr.Code, apiErr.Description)
//	}
//
// Fetch refreshes an expired token before the call. When the API reports
// invalid_token the client refreshes and retries the call once; when it
// reports undefined_token the client forgets its token.
//
// # Persisting tokens
//
// The client keeps its token in memory only. Use OAuth2Token and
// SetOAuth2Token (or Token, ExpiresAt and WithToken) to save and restore it.
package rabota
