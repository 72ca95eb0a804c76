/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"crypto/ecdsa"
	"crypto/subtle"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/proofpass/proofpass-go/pkg/common/log"
	"github.com/proofpass/proofpass-go/pkg/controller"
	"github.com/proofpass/proofpass-go/pkg/storage"
	"github.com/proofpass/proofpass-go/pkg/storage/mem"
)

const (
	// api host flag.
	agentHostFlagName      = "api-host"
	agentHostEnvKey        = "PROOFPASS_API_HOST"
	agentHostFlagShorthand = "a"
	agentHostFlagUsage     = "Host Name:Port." +
		" Alternatively, this can be set with the following environment variable: " + agentHostEnvKey

	// api token flag.
	agentTokenFlagName      = "api-token"
	agentTokenEnvKey        = "PROOFPASS_API_TOKEN" // nolint:gosec
	agentTokenFlagShorthand = "t"
	agentTokenFlagUsage     = "Check for bearer token in the authorization header (optional)." +
		" Alternatively, this can be set with the following environment variable: " + agentTokenEnvKey

	// app id flag.
	agentAppIDFlagName      = "app-id"
	agentAppIDEnvKey        = "PROOFPASS_APP_ID"
	agentAppIDFlagShorthand = "p"
	agentAppIDFlagUsage     = "Application identifier issued by the developer portal." +
		" Alternatively, this can be set with the following environment variable: " + agentAppIDEnvKey

	// bridge url flag.
	agentBridgeURLFlagName      = "bridge-url"
	agentBridgeURLEnvKey        = "PROOFPASS_BRIDGE_URL"
	agentBridgeURLFlagShorthand = "b"
	agentBridgeURLFlagUsage     = "URL of the relay used to reach the attestation app." +
		" Defaults to the public bridge if not set." +
		" Alternatively, this can be set with the following environment variable: " + agentBridgeURLEnvKey

	// portal url flag.
	agentPortalURLFlagName  = "portal-url"
	agentPortalURLEnvKey    = "PROOFPASS_PORTAL_URL"
	agentPortalURLFlagUsage = "URL of the developer portal used to verify received proofs." +
		" Defaults to the public portal if not set." +
		" Alternatively, this can be set with the following environment variable: " + agentPortalURLEnvKey

	// relying party id flag.
	agentRPIDFlagName  = "rp-id"
	agentRPIDEnvKey    = "PROOFPASS_RP_ID"
	agentRPIDFlagUsage = "Relying party identifier used to sign request contexts (optional)." +
		" Requires " + agentRPKeyFileFlagName + " to be set as well." +
		" Alternatively, this can be set with the following environment variable: " + agentRPIDEnvKey

	// relying party key file flag.
	agentRPKeyFileFlagName  = "rp-private-key-file"
	agentRPKeyFileEnvKey    = "PROOFPASS_RP_PRIVATE_KEY_FILE" // nolint:gosec
	agentRPKeyFileFlagUsage = "Path to the relying party's PEM encoded P-256 private key (optional)." +
		" Requires " + agentRPIDFlagName + " to be set as well." +
		" Alternatively, this can be set with the following environment variable: " + agentRPKeyFileEnvKey

	// webhook url flag.
	agentWebhookFlagName      = "webhook-url"
	agentWebhookEnvKey        = "PROOFPASS_WEBHOOK_URL"
	agentWebhookFlagShorthand = "w"
	agentWebhookFlagUsage     = "URL to send notifications to." +
		" This flag can be repeated, allowing for multiple listeners." +
		" Alternatively, this can be set with the following environment variable (in CSV format): " + agentWebhookEnvKey

	// log level.
	agentLogLevelFlagName  = "log-level"
	agentLogLevelEnvKey    = "PROOFPASS_LOG_LEVEL"
	agentLogLevelFlagUsage = "Log level." +
		" Possible values [INFO] [DEBUG] [ERROR] [WARNING] [CRITICAL] . Defaults to INFO if not set." +
		" Alternatively, this can be set with the following environment variable: " + agentLogLevelEnvKey

	// database type flag.
	databaseTypeFlagName      = "database-type"
	databaseTypeEnvKey        = "PROOFPASS_DATABASE_TYPE"
	databaseTypeFlagShorthand = "q"
	databaseTypeFlagUsage     = "The type of database to use for session records. " +
		"Supported options: mem. Defaults to mem if not set. " +
		" Alternatively, this can be set with the following environment variable: " + databaseTypeEnvKey

	agentTLSCertFileFlagName      = "tls-cert-file"
	agentTLSCertFileEnvKey        = "TLS_CERT_FILE"
	agentTLSCertFileFlagShorthand = "c"
	agentTLSCertFileFlagUsage     = "tls certificate file." +
		" Alternatively, this can be set with the following environment variable: " + agentTLSCertFileEnvKey

	agentTLSKeyFileFlagName      = "tls-key-file"
	agentTLSKeyFileEnvKey        = "TLS_KEY_FILE"
	agentTLSKeyFileFlagShorthand = "k"
	agentTLSKeyFileFlagUsage     = "tls key file." +
		" Alternatively, this can be set with the following environment variable: " + agentTLSKeyFileEnvKey

	databaseTypeMemOption = "mem"
)

var (
	errMissingHost  = errors.New("host not provided")
	errMissingAppID = errors.New("app id not provided")
	logger          = log.New("proofpass/agent-rest")
)

type agentParameters struct {
	server                      server
	host, token                 string
	appID, bridgeURL, portalURL string
	rpID, rpKeyFile             string
	dbType                      string
	tlsCertFile, tlsKeyFile     string
	webhookURLs                 []string
}

// nolint:gochecknoglobals
var supportedStorageProviders = map[string]func() storage.Provider{
	databaseTypeMemOption: func() storage.Provider {
		return mem.NewProvider()
	},
}

type server interface {
	ListenAndServe(host string, router http.Handler, certFile, keyFile string) error
}

// HTTPServer represents an actual server implementation.
type HTTPServer struct{}

// ListenAndServe starts the server using the standard Go HTTP server implementation.
func (s *HTTPServer) ListenAndServe(host string, router http.Handler, certFile, keyFile string) error {
	if certFile != "" && keyFile != "" {
		return http.ListenAndServeTLS(host, certFile, keyFile, router)
	}

	return http.ListenAndServe(host, router)
}

// Cmd returns the Cobra start command.
func Cmd(server server) (*cobra.Command, error) {
	startCmd := createStartCMD(server)

	createFlags(startCmd)

	return startCmd, nil
}

func createStartCMD(server server) *cobra.Command { //nolint: funlen, gocyclo
	return &cobra.Command{
		Use:   "start",
		Short: "Start an agent",
		Long:  `Start a ProofPass agent controller`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// log level
			logLevel, err := getUserSetVar(cmd, agentLogLevelFlagName, agentLogLevelEnvKey, true)
			if err != nil {
				return err
			}

			err = setLogLevel(logLevel)
			if err != nil {
				return err
			}

			host, err := getUserSetVar(cmd, agentHostFlagName, agentHostEnvKey, false)
			if err != nil {
				return err
			}

			token, err := getUserSetVar(cmd, agentTokenFlagName, agentTokenEnvKey, true)
			if err != nil {
				return err
			}

			appID, err := getUserSetVar(cmd, agentAppIDFlagName, agentAppIDEnvKey, false)
			if err != nil {
				return err
			}

			bridgeURL, err := getUserSetVar(cmd, agentBridgeURLFlagName, agentBridgeURLEnvKey, true)
			if err != nil {
				return err
			}

			portalURL, err := getUserSetVar(cmd, agentPortalURLFlagName, agentPortalURLEnvKey, true)
			if err != nil {
				return err
			}

			rpID, err := getUserSetVar(cmd, agentRPIDFlagName, agentRPIDEnvKey, true)
			if err != nil {
				return err
			}

			rpKeyFile, err := getUserSetVar(cmd, agentRPKeyFileFlagName, agentRPKeyFileEnvKey, true)
			if err != nil {
				return err
			}

			dbType, err := getUserSetVar(cmd, databaseTypeFlagName, databaseTypeEnvKey, true)
			if err != nil {
				return err
			}

			webhookURLs, err := getUserSetVars(cmd, agentWebhookFlagName, agentWebhookEnvKey, true)
			if err != nil {
				return err
			}

			tlsCertFile, err := getUserSetVar(cmd, agentTLSCertFileFlagName, agentTLSCertFileEnvKey, true)
			if err != nil {
				return err
			}

			tlsKeyFile, err := getUserSetVar(cmd, agentTLSKeyFileFlagName, agentTLSKeyFileEnvKey, true)
			if err != nil {
				return err
			}

			parameters := &agentParameters{
				server:      server,
				host:        host,
				token:       token,
				appID:       appID,
				bridgeURL:   bridgeURL,
				portalURL:   portalURL,
				rpID:        rpID,
				rpKeyFile:   rpKeyFile,
				dbType:      dbType,
				webhookURLs: webhookURLs,
				tlsCertFile: tlsCertFile,
				tlsKeyFile:  tlsKeyFile,
			}

			return startAgent(parameters)
		},
	}
}

func createFlags(startCmd *cobra.Command) {
	// agent host flag
	startCmd.Flags().StringP(agentHostFlagName, agentHostFlagShorthand, "", agentHostFlagUsage)

	// agent token flag
	startCmd.Flags().StringP(agentTokenFlagName, agentTokenFlagShorthand, "", agentTokenFlagUsage)

	// app id flag
	startCmd.Flags().StringP(agentAppIDFlagName, agentAppIDFlagShorthand, "", agentAppIDFlagUsage)

	// bridge url flag
	startCmd.Flags().StringP(agentBridgeURLFlagName, agentBridgeURLFlagShorthand, "", agentBridgeURLFlagUsage)

	// portal url flag
	startCmd.Flags().StringP(agentPortalURLFlagName, "", "", agentPortalURLFlagUsage)

	// relying party id flag
	startCmd.Flags().StringP(agentRPIDFlagName, "", "", agentRPIDFlagUsage)

	// relying party key file flag
	startCmd.Flags().StringP(agentRPKeyFileFlagName, "", "", agentRPKeyFileFlagUsage)

	// db type
	startCmd.Flags().StringP(databaseTypeFlagName, databaseTypeFlagShorthand, "", databaseTypeFlagUsage)

	// webhook url flag
	startCmd.Flags().StringSliceP(agentWebhookFlagName, agentWebhookFlagShorthand, []string{}, agentWebhookFlagUsage)

	// log level
	startCmd.Flags().StringP(agentLogLevelFlagName, "", "", agentLogLevelFlagUsage)

	// tls cert file
	startCmd.Flags().StringP(agentTLSCertFileFlagName,
		agentTLSCertFileFlagShorthand, "", agentTLSCertFileFlagUsage)

	// tls key file
	startCmd.Flags().StringP(agentTLSKeyFileFlagName,
		agentTLSKeyFileFlagShorthand, "", agentTLSKeyFileFlagUsage)
}

func getUserSetVar(cmd *cobra.Command, flagName, envKey string, isOptional bool) (string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetString(flagName)
		if err != nil {
			return "", fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	if isOptional || isSet {
		return value, nil
	}

	return "", errors.New("Neither " + flagName + " (command line flag) nor " + envKey +
		" (environment variable) have been set.")
}

func getUserSetVars(cmd *cobra.Command, flagName, envKey string, isOptional bool) ([]string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetStringSlice(flagName)
		if err != nil {
			return nil, fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	var values []string

	if isSet {
		values = strings.Split(value, ",")
	}

	if isOptional || isSet {
		return values, nil
	}

	return nil, fmt.Errorf(" %s not set. "+
		"It must be set via either command line or environment variable", flagName)
}

func setLogLevel(logLevel string) error {
	if logLevel != "" {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("failed to parse log level '%s' : %w", logLevel, err)
		}

		log.SetLevel("", level)

		logger.Infof("logger level set to %s", logLevel)
	}

	return nil
}

func validateAuthorizationBearerToken(w http.ResponseWriter, r *http.Request, token string) bool {
	actHdr := r.Header.Get("Authorization")
	expHdr := "Bearer " + token

	if subtle.ConstantTimeCompare([]byte(actHdr), []byte(expHdr)) != 1 {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Unauthorised.\n")) // nolint:gosec,errcheck

		return false
	}

	return true
}

func authorizationMiddleware(token string) mux.MiddlewareFunc {
	middleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validateAuthorizationBearerToken(w, r, token) {
				next.ServeHTTP(w, r)
			}
		})
	}

	return middleware
}

func startAgent(parameters *agentParameters) error {
	if parameters.host == "" {
		return errMissingHost
	}

	if parameters.appID == "" {
		return errMissingAppID
	}

	provider, err := createAgentProvider(parameters)
	if err != nil {
		return err
	}

	// get all HTTP REST API handlers available for controller API
	handlers, err := controller.GetRESTHandlers(provider,
		controller.WithWebhookURLs(parameters.webhookURLs...))
	if err != nil {
		return fmt.Errorf("failed to start agent rest on port [%s], failed to get rest service api :  %w",
			parameters.host, err)
	}

	router := mux.NewRouter()

	if parameters.token != "" {
		router.Use(authorizationMiddleware(parameters.token))
	}

	for _, handler := range handlers {
		router.HandleFunc(handler.Path(), handler.Handle()).Methods(handler.Method())
	}

	logger.Infof("Starting agent rest on host [%s]", parameters.host)
	// start server on given port and serve using given handlers
	handler := cors.New(
		cors.Options{
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodHead},
			AllowedHeaders: []string{"Origin", "Accept", "Content-Type", "X-Requested-With", "Authorization"},
		},
	).Handler(router)

	err = parameters.server.ListenAndServe(parameters.host, handler, parameters.tlsCertFile, parameters.tlsKeyFile)
	if err != nil {
		return fmt.Errorf("failed to start agent rest on port [%s], cause:  %w", parameters.host, err)
	}

	return nil
}

// agentProvider supplies controller dependencies from the start parameters.
type agentProvider struct {
	storageProvider storage.Provider
	appID           string
	bridgeURL       string
	portalURL       string
	rpID            string
	rpKey           *ecdsa.PrivateKey
}

func (p *agentProvider) StorageProvider() storage.Provider { return p.storageProvider }
func (p *agentProvider) AppID() string { return p.appID }
func (p *agentProvider) BridgeURL() string { return p.bridgeURL }
func (p *agentProvider) PortalURL() string { return p.portalURL }
func (p *agentProvider) RPID() string { return p.rpID }
func (p *agentProvider) RPPrivateKey() *ecdsa.PrivateKey { return p.rpKey }

func createAgentProvider(parameters *agentParameters) (*agentProvider, error) {
	storeProvider, err := createStoreProvider(parameters.dbType)
	if err != nil {
		return nil, err
	}

	provider := &agentProvider{
		storageProvider: storeProvider,
		appID:           parameters.appID,
		bridgeURL:       parameters.bridgeURL,
		portalURL:       parameters.portalURL,
		rpID:            parameters.rpID,
	}

	if (parameters.rpID == "") != (parameters.rpKeyFile == "") {
		return nil, fmt.Errorf("%s and %s must be set together",
			agentRPIDFlagName, agentRPKeyFileFlagName)
	}

	if parameters.rpKeyFile != "" {
		key, err := loadRPPrivateKey(parameters.rpKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load relying party key from %s : %w", parameters.rpKeyFile, err)
		}

		provider.rpKey = key
	}

	return provider, nil
}

func createStoreProvider(dbType string) (storage.Provider, error) {
	if dbType == "" {
		dbType = databaseTypeMemOption
	}

	providerFunc, supported := supportedStorageProviders[dbType]
	if !supported {
		return nil, fmt.Errorf("database type not set to a valid type." +
			" run start --help to see the available options")
	}

	return providerFunc(), nil
}

// loadRPPrivateKey reads a PEM encoded ECDSA private key in SEC 1 or PKCS#8
// form.
func loadRPPrivateKey(path string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no pem block found")
	}

	switch block.Type {
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}

		ecKey, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("pem block holds a %T, expected an ecdsa key", key)
		}

		return ecKey, nil
	default:
		return nil, fmt.Errorf("unsupported pem block type %q", block.Type)
	}
}
