package sync

import (
	"formtable/storage"
	"log"

	"golang.org/x/oauth2"
)

// ==================== TOKEN REFRESH MANAGEMENT ====================

// updateTokenIfRefreshed saves the provider's token to the session store when
// a storage call refreshed it
func (w *Worker) updateTokenIfRefreshed(provider storage.Provider, originalToken *oauth2.Token, userID string, logPrefix string) {
	currentToken, err := provider.GetCurrentToken()
	if err != nil || currentToken == nil || originalToken == nil {
		return
	}

	if currentToken.AccessToken == originalToken.AccessToken && currentToken.Expiry.Equal(originalToken.Expiry) {
		return
	}

	log.Printf("[%s] Token was refreshed for user %s, updating session", logPrefix, userID)
	if w.sessionStore == nil {
		return
	}
	if err := w.sessionStore.UpdateUserToken(userID, currentToken.AccessToken, currentToken.RefreshToken, currentToken.Expiry); err != nil {
		log.Printf("[%s] Failed to update token in session: %v", logPrefix, err)
	}
}
