package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/golang/glog"

	"github.com/vouchsafe/go-vouchsafe/claim"
	"github.com/vouchsafe/go-vouchsafe/common"
	vcrypto "github.com/vouchsafe/go-vouchsafe/crypto"
)

func logAndRespondWithError(w http.ResponseWriter, errMsg string, code int) {
	glog.Error(errMsg)
	http.Error(w, errMsg, code)
}

func respondWithJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		glog.Error(err)
	}
}

func mustHaveFormParams(h http.Handler, params ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			glog.Error(err)
			logAndRespondWithError(w, "parse form error", http.StatusInternalServerError)
			return
		}

		for _, param := range params {
			if r.FormValue(param) == "" {
				logAndRespondWithError(w, fmt.Sprintf("missing form param: %s", param), http.StatusBadRequest)
				return
			}
		}

		h.ServeHTTP(w, r)
	})
}

// authMsg is the canonical message a caller signs to authenticate a mutating
// request. The caller identity is always recovered from this signature and
// never read from a form field.
func authMsg(method string, params ...string) []byte {
	return []byte(strings.Join(append([]string{method}, params...), ":"))
}

func authenticatedCaller(r *http.Request, method string, params ...string) (ethcommon.Address, error) {
	authSig := ethcommon.FromHex(r.FormValue("authSig"))
	return vcrypto.RecoverSigner(authMsg(method, params...), authSig)
}

func respondWithClaimError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case isAnyOf(err, claim.ErrInvalidSequence, claim.ErrVoucherReused, claim.ErrInvalidVoucher,
		claim.ErrInvalidAmount, claim.ErrWrongNetwork, claim.ErrZeroAddress,
		claim.ErrAlreadyConfigured, claim.ErrAlreadySuspended, claim.ErrNotSuspended):
		code = http.StatusBadRequest
	case isAnyOf(err, claim.ErrSuspended):
		code = http.StatusServiceUnavailable
	case isAnyOf(err, claim.ErrInsufficientBalance):
		code = http.StatusConflict
	default:
		var unauthErr *claim.UnauthorizedError
		if errors.As(err, &unauthErr) {
			code = http.StatusForbidden
		}
	}

	logAndRespondWithError(w, err.Error(), code)
}

func isAnyOf(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}

func claimHandler(s *claim.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		amount, err := common.ParseBigInt(r.FormValue("amount"))
		if err != nil || amount.Sign() < 0 {
			glog.Errorf("invalid claim amount %q err=%v", r.FormValue("amount"), err)
			logAndRespondWithError(w, "invalid amount", http.StatusBadRequest)
			return
		}

		seq, err := strconv.ParseUint(r.FormValue("seq"), 10, 64)
		if err != nil {
			glog.Error(err)
			logAndRespondWithError(w, "invalid seq", http.StatusBadRequest)
			return
		}

		sigHex := r.FormValue("sig")
		sig := ethcommon.FromHex(sigHex)

		caller, err := authenticatedCaller(r, "claim", sigHex)
		if err != nil {
			glog.Error(err)
			logAndRespondWithError(w, "invalid auth signature", http.StatusUnauthorized)
			return
		}

		if err := s.Claim(caller, amount, seq, sig); err != nil {
			respondWithClaimError(w, err)
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("claim success"))
	})
}

func suspendHandler(s *claim.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, err := authenticatedCaller(r, "suspend")
		if err != nil {
			glog.Error(err)
			logAndRespondWithError(w, "invalid auth signature", http.StatusUnauthorized)
			return
		}

		if err := s.Suspend(caller); err != nil {
			respondWithClaimError(w, err)
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("suspend success"))
	})
}

func resumeHandler(s *claim.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, err := authenticatedCaller(r, "resume")
		if err != nil {
			glog.Error(err)
			logAndRespondWithError(w, "invalid auth signature", http.StatusUnauthorized)
			return
		}

		if err := s.Resume(caller); err != nil {
			respondWithClaimError(w, err)
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("resume success"))
	})
}

func configureTokenHandler(s *claim.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenHex := r.FormValue("token")
		if !ethcommon.IsHexAddress(tokenHex) {
			logAndRespondWithError(w, "invalid token address", http.StatusBadRequest)
			return
		}

		caller, err := authenticatedCaller(r, "configureToken", tokenHex)
		if err != nil {
			glog.Error(err)
			logAndRespondWithError(w, "invalid auth signature", http.StatusUnauthorized)
			return
		}

		if err := s.ConfigureToken(caller, ethcommon.HexToAddress(tokenHex)); err != nil {
			respondWithClaimError(w, err)
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("configureToken success"))
	})
}

func authorizeUpgradeHandler(s *claim.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		implHex := r.FormValue("implementation")
		if !ethcommon.IsHexAddress(implHex) {
			logAndRespondWithError(w, "invalid implementation address", http.StatusBadRequest)
			return
		}

		caller, err := authenticatedCaller(r, "authorizeUpgrade", implHex)
		if err != nil {
			glog.Error(err)
			logAndRespondWithError(w, "invalid auth signature", http.StatusUnauthorized)
			return
		}

		if err := s.AuthorizeUpgrade(caller, ethcommon.HexToAddress(implHex)); err != nil {
			respondWithClaimError(w, err)
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("authorizeUpgrade success"))
	})
}

func grantRoleHandler(s *claim.Service) http.Handler {
	return roleHandler(s, "grantRole", (*claim.Service).Grant)
}

func revokeRoleHandler(s *claim.Service) http.Handler {
	return roleHandler(s, "revokeRole", (*claim.Service).Revoke)
}

func roleHandler(s *claim.Service, method string, op func(*claim.Service, ethcommon.Address, claim.Capability, ethcommon.Address) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capability, err := claim.ParseCapability(r.FormValue("capability"))
		if err != nil {
			logAndRespondWithError(w, "invalid capability", http.StatusBadRequest)
			return
		}

		accountHex := r.FormValue("account")
		if !ethcommon.IsHexAddress(accountHex) {
			logAndRespondWithError(w, "invalid account address", http.StatusBadRequest)
			return
		}

		caller, err := authenticatedCaller(r, method, r.FormValue("capability"), accountHex)
		if err != nil {
			glog.Error(err)
			logAndRespondWithError(w, "invalid auth signature", http.StatusUnauthorized)
			return
		}

		if err := op(s, caller, capability, ethcommon.HexToAddress(accountHex)); err != nil {
			respondWithClaimError(w, err)
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(method + " success"))
	})
}

func expectedSequenceHandler(s *claim.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountHex := r.FormValue("account")
		if !ethcommon.IsHexAddress(accountHex) {
			logAndRespondWithError(w, "invalid account address", http.StatusBadRequest)
			return
		}

		seq, err := s.ExpectedSequence(ethcommon.HexToAddress(accountHex))
		if err != nil {
			logAndRespondWithError(w, err.Error(), http.StatusInternalServerError)
			return
		}

		respondWithJSON(w, map[string]uint64{"expectedSequence": seq})
	})
}

func isVoucherConsumedHandler(s *claim.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sig := ethcommon.FromHex(r.FormValue("sig"))

		consumed, err := s.IsVoucherConsumed(sig)
		if err != nil {
			logAndRespondWithError(w, err.Error(), http.StatusInternalServerError)
			return
		}

		respondWithJSON(w, map[string]bool{"consumed": consumed})
	})
}

func isActiveHandler(s *claim.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, map[string]bool{"active": s.IsActive()})
	})
}

func currentTokenHandler(s *claim.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, map[string]string{"token": s.CurrentToken().Hex()})
	})
}

func hasCapabilityHandler(s *claim.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capability, err := claim.ParseCapability(r.FormValue("capability"))
		if err != nil {
			logAndRespondWithError(w, "invalid capability", http.StatusBadRequest)
			return
		}

		accountHex := r.FormValue("account")
		if !ethcommon.IsHexAddress(accountHex) {
			logAndRespondWithError(w, "invalid account address", http.StatusBadRequest)
			return
		}

		granted := s.HasCapability(capability, ethcommon.HexToAddress(accountHex))
		respondWithJSON(w, map[string]bool{"granted": granted})
	})
}

func eventsHandler(db *common.DB) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			logAndRespondWithError(w, "no event journal without a data directory", http.StatusNotFound)
			return
		}

		events, err := db.Events()
		if err != nil {
			logAndRespondWithError(w, err.Error(), http.StatusInternalServerError)
			return
		}

		respondWithJSON(w, events)
	})
}
