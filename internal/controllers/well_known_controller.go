package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/favorapp/payments-service/internal/utils"
)

const (
	appleTeamID    = "F4V0RAPP99"
	appleAppID     = "com.favorapp.helper"
	appleAppName   = "favorhelper"
	androidPackage = "com.favorapp.helper"

	androidSHA256CertDebug   = "14:6D:E9:83:C5:73:06:50:D8:EE:B9:95:2F:34:FC:64:16:A0:83:42:E6:1D:BE:A8:8A:04:96:B2:3F:CF:44:E5"
	androidSHA256CertRelease = "44:12:87:A1:58:62:A7:BE:21:EB:3C:56:01:2E:B7:1C:0A:0C:BB:32:9C:27:18:6D:60:29:0C:9E:1E:8C:4F:AF"
)

// AppleAppSiteAssociation is the JSON shape iOS expects for universal links.
type AppleAppSiteAssociation struct {
	Applinks struct {
		Apps    []string `json:"apps"`
		Details []struct {
			AppID string   `json:"appID"`
			Paths []string `json:"paths"`
		} `json:"details"`
	} `json:"applinks"`
}

// AssetLink is the JSON shape for an Android asset link target.
type AssetLink struct {
	Relation []string `json:"relation"`
	Target   struct {
		Namespace              string   `json:"namespace"`
		PackageName            string   `json:"package_name"`
		Sha256CertFingerprints []string `json:"sha256_cert_fingerprints"`
	} `json:"target"`
}

// WellKnownController serves iOS and Android app-link metadata files:
//   - /.well-known/apple-app-site-association
//   - /.well-known/assetlinks.json
type WellKnownController struct{}

func NewWellKnownController() *WellKnownController {
	return &WellKnownController{}
}

// AppleAppSiteAssociationHandler -> GET /.well-known/apple-app-site-association
func (c *WellKnownController) AppleAppSiteAssociationHandler(w http.ResponseWriter, r *http.Request) {
	utils.Logger.Debug("apple-app-site-association requested")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	data := AppleAppSiteAssociation{}
	data.Applinks.Apps = []string{}
	data.Applinks.Details = []struct {
		AppID string   `json:"appID"`
		Paths []string `json:"paths"`
	}{
		{
			AppID: appleTeamID + "." + appleAppID,
			Paths: []string{"/" + appleAppName + "/*"},
		},
	}

	_ = json.NewEncoder(w).Encode(data)
}

// AssetLinksHandler -> GET /.well-known/assetlinks.json
func (c *WellKnownController) AssetLinksHandler(w http.ResponseWriter, r *http.Request) {
	utils.Logger.Debug("assetlinks.json requested")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	assetLinks := []AssetLink{
		{
			Relation: []string{"delegate_permission/common.handle_all_urls"},
			Target: struct {
				Namespace              string   `json:"namespace"`
				PackageName            string   `json:"package_name"`
				Sha256CertFingerprints []string `json:"sha256_cert_fingerprints"`
			}{
				Namespace:              "android_app",
				PackageName:            androidPackage,
				Sha256CertFingerprints: []string{androidSHA256CertDebug, androidSHA256CertRelease},
			},
		},
	}

	_ = json.NewEncoder(w).Encode(assetLinks)
}
