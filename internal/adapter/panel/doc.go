// Package panel is the provisioning client for the remote management panel.
//
// The panel speaks HTTP+JSON. Every response uses the envelope
// {"status": "success"|..., "data": ..., "message": ...}. Request URLs are
// built by appending the endpoint name ("plans", "users") to the configured
// base URL, which may itself end in a query such as "api.php?path=".
//
// Read paths (ListPlans, GetUserStatus) never fail: errors are logged and
// reported as an empty result. CreateUser returns *APIError for transport,
// HTTP and decoding failures and *ProvisioningError when the panel rejects
// the request.
package panel
