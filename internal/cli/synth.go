package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/raywall/raysouz-constructs/constructs"
	"github.com/raywall/raysouz-constructs/internal/client"
	"github.com/raywall/raysouz-constructs/internal/manifest"
	"github.com/raywall/raysouz-constructs/pkg/construct"
)

func newSynthCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Build a stack file and write its cloud assembly",
		Long: `synth lê o arquivo de stack, declara os constructs e grava em --out
o template, o manifesto de assets e os assets empacotados.

Exemplo:
  raysouz synth -f stack.yaml -o cdk.out --region sa-east-1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runSynth(cmd)
		},
	}
	cmd.Flags().StringP("file", "f", "stack.yaml", "stack file")
	cmd.Flags().StringP("out", "o", "cdk.out", "output directory")
	cmd.Flags().String("region", "", "target region (overrides the stack file)")
	cmd.Flags().Bool("resolve-env", false, "resolve account and region from the AWS credentials")
	cmd.Flags().Bool("verify-policies", false, "check that attached managed policies exist")
	for _, name := range []string{"file", "out", "region", "resolve-env", "verify-policies"} {
		_ = opts.v.BindPFlag(name, cmd.Flags().Lookup(name))
	}
	return cmd
}

func (o *options) runSynth(cmd *cobra.Command) error {
	ctx := cmd.Context()
	log := o.logger.WithField("file", o.v.GetString("file"))

	sf, err := manifest.Load(o.v.GetString("file"))
	if err != nil {
		return err
	}
	if r := o.v.GetString("region"); r != "" {
		sf.Region = r
	}

	var aws *client.AWSClient
	if o.v.GetBool("resolve-env") || o.v.GetBool("verify-policies") {
		aws, err = newAWSClient(ctx, sf.Region)
		if err != nil {
			return err
		}
	}
	if o.v.GetBool("resolve-env") {
		if sf.Account == "" {
			sf.Account = aws.AccountID
		}
		if sf.Region == "" {
			sf.Region = aws.Region
		}
		log.WithFields(logrus.Fields{"account": sf.Account, "region": sf.Region}).Info("environment resolved")
	}

	app := construct.NewApp(construct.WithOutDir(o.v.GetString("out")), construct.WithLogger(o.logger))
	stack, err := manifest.Build(app, sf)
	if err != nil {
		return err
	}

	if o.v.GetBool("verify-policies") {
		if err := verifyPolicies(cmd, aws, stack, log); err != nil {
			return err
		}
	}

	asm, err := app.Synth()
	if err != nil {
		return err
	}
	tpl := asm.Templates[stack.Name()]
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d resources, %d assets -> %s\n",
		stack.Name(), len(tpl.Resources), len(asm.Assets[stack.Name()].Assets), asm.Dir)
	return nil
}

// verifyPolicies consulta no IAM cada política gerenciada anexada às roles da stack.
func verifyPolicies(cmd *cobra.Command, aws *client.AWSClient, stack *construct.Stack, log logrus.FieldLogger) error {
	seen := map[string]bool{}
	var arns []string
	stack.Node().Walk(func(n *construct.Node) {
		role, ok := n.Host().(*constructs.Role)
		if !ok {
			return
		}
		for _, a := range role.ManagedPolicyArns() {
			resolved := stack.Resolve(a)
			if construct.IsToken(resolved) || strings.Contains(resolved, "${") {
				log.WithField("policy", a).Warn("policy arn not resolvable, skipping")
				continue
			}
			if !seen[resolved] {
				seen[resolved] = true
				arns = append(arns, resolved)
			}
		}
	})
	sort.Strings(arns)

	missing, err := aws.MissingPolicies(cmd.Context(), arns)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("managed policies not found: %s", strings.Join(missing, ", "))
	}
	log.WithField("count", len(arns)).Info("managed policies verified")
	return nil
}
