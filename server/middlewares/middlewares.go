package middlewares

import (
	"context"
	"log"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/gin-gonic/gin"
)

var (
	// cognitoClient is a thread safe client that performs user authorization
	// based on jwt token. Before using this client, make sure it's initialized
	// correctly.
	cognitoClient *cognitoidentityprovider.Client
)

// Setup initialized all package scoped variables that are needed to perform
// middleware functionalities, such as Cognito client. This function must be
// called before any middleware is used.
func Setup() {
	client, err := createCognitoClient()
	if err != nil {
		// Abort directly if the Cognito isn't setup successfully, which is crucial
		// for server side authorization.
		log.Fatalf("fail to setup Cognito client: %s", err.Error())
	}
	setCognitoClient(client)
}

// createCognitoClient creates a default client with aws config located in path
// ~/.aws/config, and return error on error.
func createCognitoClient() (*cognitoidentityprovider.Client, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		return nil, err
	}
	return cognitoidentityprovider.NewFromConfig(cfg), nil
}

func setCognitoClient(client *cognitoidentityprovider.Client) {
	cognitoClient = client
}

// Identity resolves the optional authenticated user. A request without a
// token passes through anonymous: every personalized feed phase then routes
// straight to fallback. A request with a token must carry a valid one; on
// success the user id is exposed under the "sub" header field.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Header.Del("sub")

		jwt := c.Query("token")
		if jwt == "" {
			jwt = c.GetHeader("token")
		}
		if jwt == "" {
			c.Next()
			return
		}

		user, err := cognitoClient.GetUser(context.TODO(), &cognitoidentityprovider.GetUserInput{AccessToken: &jwt})
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token",
			})
			c.Abort()
			return
		}

		// Successfully validated the jwt token, expose the user's sub (id) to
		// handlers.
		c.Request.Header.Del("token")
		c.Request.Header.Add("sub", *user.Username)

		c.Next()
	}
}

// CurrentUserId returns the authenticated user id resolved by Identity, or
// empty for anonymous requests.
func CurrentUserId(c *gin.Context) string {
	return c.Request.Header.Get("sub")
}
