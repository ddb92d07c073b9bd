package e2e

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/cucumber/godog"

	"hearth/pkg/domain"
)

// RegisterSteps binds every step definition to tc.
func RegisterSteps(sc *godog.ScenarioContext, tc *TestContext) {
	sc.Step(`^hearth is running$`, tc.hearthIsRunning)

	sc.Step(`^I am a super admin$`, tc.iAmASuperAdmin)
	sc.Step(`^I am an? "([^"]*)" of "([^"]*)"$`, tc.iAmAMemberOf)
	sc.Step(`^I have no token$`, tc.iHaveNoToken)
	sc.Step(`^I use the token "([^"]*)"$`, tc.iUseTheToken)

	sc.Step(`^the household "([^"]*)" is known$`, tc.theHouseholdIsKnown)
	sc.Step(`^I (GET|POST|PUT) "([^"]*)"$`, tc.iRequest)
	sc.Step(`^I (POST|PUT) "([^"]*)" with:$`, tc.iRequestWithBody)

	sc.Step(`^the response status should be (\d+)$`, tc.responseStatusShouldBe)
	sc.Step(`^the error should be "([^"]*)"$`, tc.theErrorShouldBe)
	sc.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, tc.responseFieldShouldEqual)
	sc.Step(`^the response should contain "([^"]*)"$`, tc.responseShouldContain)
}

func (tc *TestContext) hearthIsRunning(context.Context) error {
	if tc.BaseURL == "" {
		return fmt.Errorf("E2E_BASE_URL not set")
	}
	if err := tc.Do(http.MethodGet, "/health/live", nil); err != nil {
		return err
	}
	return tc.responseStatusShouldBe(context.Background(), http.StatusOK)
}

func (tc *TestContext) iAmASuperAdmin(context.Context) error {
	return tc.issue(&domain.Principal{SubjectID: domain.NewUserID(), Role: domain.RoleSuperAdmin})
}

// iAmAMemberOf carries an ACTIVE status snapshot; the server re-checks it.
func (tc *TestContext) iAmAMemberOf(_ context.Context, role, household string) error {
	id, ok := tc.Households[household]
	if !ok {
		return fmt.Errorf("household %q not looked up", household)
	}
	r := domain.Role(role)
	if !r.IsValid() {
		return fmt.Errorf("unknown role %q", role)
	}
	return tc.issue(&domain.Principal{
		SubjectID:    domain.NewUserID(),
		Role:         r,
		TenantID:     id,
		TenantStatus: domain.TenantStatusActive,
	})
}

func (tc *TestContext) iHaveNoToken(context.Context) error {
	tc.Token = ""
	return nil
}

func (tc *TestContext) iUseTheToken(_ context.Context, token string) error {
	tc.Token = token
	return nil
}

// theHouseholdIsKnown searches as a super admin, then restores the caller's token.
func (tc *TestContext) theHouseholdIsKnown(ctx context.Context, name string) error {
	saved := tc.Token
	defer func() { tc.Token = saved }()

	if err := tc.iAmASuperAdmin(ctx); err != nil {
		return err
	}
	if err := tc.Do(http.MethodGet, "/admin/households?search="+url.QueryEscape(name), nil); err != nil {
		return err
	}
	data, err := tc.decode()
	if err != nil {
		return err
	}
	list, _ := data["households"].([]any)
	for _, item := range list {
		h, _ := item.(map[string]any)
		if h["name"] != name {
			continue
		}
		id, err := domain.ParseTenantID(fmt.Sprint(h["id"]))
		if err != nil {
			return err
		}
		tc.Households[name] = id
		return nil
	}
	return fmt.Errorf("household %q not found; is the server seeded?", name)
}

func (tc *TestContext) iRequest(_ context.Context, method, path string) error {
	path, err := tc.expand(path)
	if err != nil {
		return err
	}
	return tc.Do(method, path, nil)
}

func (tc *TestContext) iRequestWithBody(_ context.Context, method, path string, body *godog.DocString) error {
	path, err := tc.expand(path)
	if err != nil {
		return err
	}
	return tc.Do(method, path, rawJSON(body.Content))
}

// rawJSON is sent as is.
type rawJSON string

func (r rawJSON) MarshalJSON() ([]byte, error) {
	return []byte(r), nil
}

func (tc *TestContext) responseStatusShouldBe(_ context.Context, expected int) error {
	if tc.LastResponse == nil {
		return fmt.Errorf("no request was made")
	}
	if tc.LastResponse.StatusCode != expected {
		return fmt.Errorf("expected status %d but got %d: %s", expected, tc.LastResponse.StatusCode, tc.LastResponseBody)
	}
	return nil
}

func (tc *TestContext) theErrorShouldBe(ctx context.Context, code string) error {
	return tc.responseFieldShouldEqual(ctx, "error", code)
}

func (tc *TestContext) responseFieldShouldEqual(_ context.Context, field, expected string) error {
	data, err := tc.decode()
	if err != nil {
		return err
	}
	var value any = data
	for _, part := range strings.Split(field, ".") {
		obj, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("field %s not found in response", field)
		}
		if value, ok = obj[part]; !ok {
			return fmt.Errorf("field %s not found in response", field)
		}
	}
	if fmt.Sprint(value) != expected {
		return fmt.Errorf("field %s: expected %s but got %v", field, expected, value)
	}
	return nil
}

func (tc *TestContext) responseShouldContain(_ context.Context, text string) error {
	expanded, err := tc.expand(text)
	if err != nil {
		return err
	}
	if !strings.Contains(string(tc.LastResponseBody), expanded) {
		return fmt.Errorf("response does not contain %q\nResponse: %s", expanded, tc.LastResponseBody)
	}
	return nil
}
