package echoapi

import (
	"io/ioutil"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/eduhive/backend/core"
	"github.com/eduhive/backend/core/billing"
	paymentsvc "github.com/eduhive/backend/services/payment"
)

type billingApi struct {
	svc    *billing.Service
	logger core.Logger
}

func registerBillingAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *billing.Service, logger core.Logger) {
	api := billingApi{svc: svc, logger: logger}

	// the gateway calls back without auth
	g.POST("/payments/mpesa/callback", api.callback)

	ag := g.Group("/payments", jwt)
	ag.POST("/initiate", api.initiate)
	ag.GET("", api.queryPayments)

	sg := g.Group("/subscription", jwt)
	sg.GET("", api.subscription)
}

// Handlers

func (api *billingApi) initiate(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data billing.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	p, err := api.svc.InitiatePayment(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		if errors.Cause(err) == paymentsvc.ErrInvalidPhoneNumber {
			return core.NewValidationError(nil, core.FieldError{Field: "phone_number", Error: "invalid phone number"})
		}
		return errors.Wrap(err, "initiating payment")
	}
	return ctx.JSON(http.StatusCreated, p)
}

// callback settles a payment from the gateway. The gateway retries on
// non-200 responses, so failures are logged and acknowledged anyway.
func (api *billingApi) callback(ctx echo.Context) error {
	body, err := ioutil.ReadAll(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "reading callback body")
	}

	cb, err := paymentsvc.ParseCallback(body)
	if err != nil {
		api.logger.Error("parsing gateway callback", err)
		return ctx.JSON(http.StatusOK, mpesaAck{ResultCode: 0, ResultDesc: "Accepted"})
	}

	if err := api.svc.HandleCallback(ctx.Request().Context(), cb); err != nil {
		api.logger.Error("handling gateway callback", errors.Wrap(err, cb.CheckoutRequestID))
	}
	return ctx.JSON(http.StatusOK, mpesaAck{ResultCode: 0, ResultDesc: "Accepted"})
}

func (api *billingApi) subscription(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	sub, err := api.svc.GetSubscription(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "getting subscription")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *billingApi) queryPayments(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	payments, err := api.svc.QueryUserPayments(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []billing.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

// mpesaAck is the acknowledgement format the gateway expects.
type mpesaAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}
