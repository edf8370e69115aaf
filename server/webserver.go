package server

import (
	"net/http"

	"github.com/golang/glog"

	"github.com/vouchsafe/go-vouchsafe/claim"
	"github.com/vouchsafe/go-vouchsafe/common"
)

// NewWebserverMux builds the node's HTTP surface: the claim endpoint, the
// capability-gated administrative endpoints and the read-only queries.
// db may be nil when the node runs without a data directory; the event
// journal is then unavailable.
func NewWebserverMux(s *claim.Service, db *common.DB) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/claim", mustHaveFormParams(claimHandler(s), "amount", "seq", "sig", "authSig"))
	mux.Handle("/suspend", mustHaveFormParams(suspendHandler(s), "authSig"))
	mux.Handle("/resume", mustHaveFormParams(resumeHandler(s), "authSig"))
	mux.Handle("/configureToken", mustHaveFormParams(configureTokenHandler(s), "token", "authSig"))
	mux.Handle("/authorizeUpgrade", mustHaveFormParams(authorizeUpgradeHandler(s), "implementation", "authSig"))
	mux.Handle("/grantRole", mustHaveFormParams(grantRoleHandler(s), "capability", "account", "authSig"))
	mux.Handle("/revokeRole", mustHaveFormParams(revokeRoleHandler(s), "capability", "account", "authSig"))

	mux.Handle("/expectedSequence", mustHaveFormParams(expectedSequenceHandler(s), "account"))
	mux.Handle("/isVoucherConsumed", mustHaveFormParams(isVoucherConsumedHandler(s), "sig"))
	mux.Handle("/isActive", isActiveHandler(s))
	mux.Handle("/currentToken", currentTokenHandler(s))
	mux.Handle("/hasCapability", mustHaveFormParams(hasCapabilityHandler(s), "capability", "account"))
	mux.Handle("/events", eventsHandler(db))

	return mux
}

// StartWebserver serves the node's HTTP surface until the listener fails.
func StartWebserver(httpAddr string, s *claim.Service, db *common.DB) {
	glog.Info("Webserver listening on ", httpAddr)
	glog.Fatal(http.ListenAndServe(httpAddr, NewWebserverMux(s, db)))
}
