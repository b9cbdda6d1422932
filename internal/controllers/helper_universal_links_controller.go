package controllers

import (
	"fmt"
	"net/http"

	"github.com/favorapp/payments-service/internal/routes"
)

// DeepLinkScheme is the custom URL scheme registered by the FavorApp
// helper mobile client.
const DeepLinkScheme = "favorhelper"

// fallbackTemplate attempts to reopen the helper app via its custom scheme
// on page load, then shows a manual button if nothing happened.
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
    <title>Returning to FavorApp</title>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1.0" />
    <script>
        function openApp() {
            window.location.href = "%s";

            setTimeout(function() {
                document.getElementById('fallback-message').style.display = 'block';
            }, 2000);
        }

        function openUniversalLink() {
            window.location.href = "%s";
        }

        window.onload = openApp;
    </script>
    <style>
      body {
        margin: 0;
        padding: 0;
        font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
        background: #FAFAFA;
        color: #333;
      }
      .container {
        max-width: 600px;
        margin: 0 auto;
        padding: 2rem 1rem;
        text-align: center;
      }
      h1 {
        font-size: 1.5rem;
        margin-bottom: 1rem;
      }
      p {
        line-height: 1.6;
        color: #6b7280;
      }
      #fallback-message {
        display: none;
        margin-top: 2rem;
        background: #fff;
        border: 1px solid #DDD;
        padding: 1.5rem;
        border-radius: 8px;
      }
      button {
        margin-top: 1rem;
        background-color: #2e8b57;
        color: #fff;
        border: none;
        padding: 0.75rem 1.5rem;
        border-radius: 8px;
        cursor: pointer;
        font-weight: 600;
        font-size: 1rem;
      }
      button:hover {
        opacity: 0.9;
      }
    </style>
</head>
<body>
    <div class="container">
      <h1>Returning to FavorApp...</h1>
      <p>Please wait while we attempt to open the FavorApp helper app.</p>

      <div id="fallback-message">
        <p>
          If the app did not open automatically, please try opening it again with the button below.
        </p>
        <button onclick="openUniversalLink()">Open FavorApp</button>
        <p style="margin-top: 1.5rem;">Or simply open FavorApp manually on your device.</p>
      </div>
    </div>
</body>
</html>
`

// HelperUniversalLinksController handles requests to universal link endpoints.
type HelperUniversalLinksController struct {
	AppUrl string
}

func NewHelperUniversalLinksController(appUrl string) *HelperUniversalLinksController {
	return &HelperUniversalLinksController{
		AppUrl: appUrl,
	}
}

func (c *HelperUniversalLinksController) fallbackHTML(deepLinkRoute string) string {
	// Custom scheme: e.g., favorhelper://favorhelper/stripe-connect-return
	customSchemeLink := fmt.Sprintf("%s://%s", DeepLinkScheme, deepLinkRoute)

	// Universal link: e.g., https://YOURDOMAIN/favorhelper/stripe-connect-return
	universalLink := fmt.Sprintf("%s%s", c.AppUrl, deepLinkRoute)

	return fmt.Sprintf(fallbackTemplate, customSchemeLink, universalLink)
}

// HelperStripeConnectReturnHandler -> GET /favorhelper/stripe-connect-return
func (c *HelperUniversalLinksController) HelperStripeConnectReturnHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	html := c.fallbackHTML(routes.HelperUniversalLinkStripeConnectReturn)
	_, _ = w.Write([]byte(html))
}

// HelperStripeConnectRefreshHandler -> GET /favorhelper/stripe-connect-refresh
func (c *HelperUniversalLinksController) HelperStripeConnectRefreshHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	html := c.fallbackHTML(routes.HelperUniversalLinkStripeConnectRefresh)
	_, _ = w.Write([]byte(html))
}
