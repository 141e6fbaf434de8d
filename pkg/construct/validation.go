package construct

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/hashicorp/terraform-plugin-sdk/v2/diag"
	"github.com/hashicorp/terraform-plugin-sdk/v2/helper/schema"
)

// Check runs a terraform-plugin-sdk schema validator (validation.IntBetween,
// validation.StringMatch, ...) and turns its warnings and errors into
// diagnostics.
func Check(fn schema.SchemaValidateFunc, value any, key string) diag.Diagnostics {
	var diags diag.Diagnostics
	warns, errs := fn(value, key)
	for _, w := range warns {
		diags = append(diags, diag.Diagnostic{Severity: diag.Warning, Summary: w})
	}
	for _, err := range errs {
		diags = append(diags, diag.Diagnostic{Severity: diag.Error, Summary: err.Error()})
	}
	return diags
}

// CheckARN reports an error when v is neither a token nor a parseable ARN.
func CheckARN(v, key string) diag.Diagnostics {
	if IsToken(v) {
		return nil
	}
	if _, err := arn.Parse(v); err != nil {
		return diag.Errorf("%s: invalid ARN %q: %v", key, v, err)
	}
	return nil
}

// ErrSynthesis wraps every error diagnostic found while synthesizing.
var ErrSynthesis = errors.New("synthesis failed")

// DiagnosticsError collapses the error diagnostics into one error, nil if
// there are none.
func DiagnosticsError(diags diag.Diagnostics) error {
	if !diags.HasError() {
		return nil
	}
	var msgs []string
	for _, d := range diags {
		if d.Severity != diag.Error {
			continue
		}
		if d.Detail != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s", d.Detail, d.Summary))
		} else {
			msgs = append(msgs, d.Summary)
		}
	}
	return fmt.Errorf("%w: %s", ErrSynthesis, strings.Join(msgs, "; "))
}
