package v20

const AuthorizeFeatureName = "Authorize"

type AuthorizeRequest struct {
	IdToken IdToken `json:"idToken" validate:"required"`
}

type AuthorizeResponse struct {
	IdTokenInfo *IdTokenInfo `json:"idTokenInfo" validate:"required"`
}

func NewAuthorizeResponse(idTokenInfo *IdTokenInfo) *AuthorizeResponse {
	return &AuthorizeResponse{IdTokenInfo: idTokenInfo}
}
