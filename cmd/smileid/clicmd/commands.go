package clicmd

import (
	"github.com/spf13/cobra"

	"smileid/pkg/domain"
	"smileid/pkg/images"
	"smileid/pkg/validation"
	"smileid/pkg/webapi"
)

func servicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "Print the live validation schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			schema, err := rt.client.Services(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{"id_types": schema})
		},
	}
}

func validateCmd() *cobra.Command {
	var (
		fields map[string]string
		live   bool
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check id info against the validation schema",
		Long:  `Check id info against the compiled-in schema, or the live one with --live. Nothing is submitted.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			info, err := rt.client.ValidateIDInfo(cmd.Context(), toAny(fields), live)
			if err != nil {
				return err
			}
			return printJSON(cmd, validation.Redacted(info))
		},
	}
	cmd.Flags().StringToStringVar(&fields, "field", nil, "id info field, e.g. --field country=NG --field id_type=BVN")
	cmd.Flags().BoolVar(&live, "live", false, "validate against the live schema")
	return cmd
}

func submitCmd() *cobra.Command {
	var (
		userID, jobID          string
		jobType                int
		selfie, idCard, idBack string
		liveness               []string
		idInfo                 map[string]string
		callbackURL            string
		opts                   webapi.Options
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a verification job",
		Long: `Submit a job with its images and optional id info. With --return-job-status the
command waits for the job to complete; otherwise the result arrives at the callback URL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			req := webapi.JobRequest{
				PartnerParams: domain.PartnerParams{
					UserID:  domain.UserID(userID),
					JobID:   domain.JobID(jobID),
					JobType: domain.JobType(jobType),
				},
				Options:     opts,
				CallbackURL: callbackURL,
			}
			if len(idInfo) > 0 {
				req.IDInfo = toAny(idInfo)
			}
			for _, f := range []struct {
				t    images.Type
				path string
			}{
				{images.SelfieFile, selfie},
				{images.IDCardFile, idCard},
				{images.IDCardBackFile, idBack},
			} {
				if f.path != "" {
					req.Images = append(req.Images, images.FromFile(f.t, f.path))
				}
			}
			for _, path := range liveness {
				req.Images = append(req.Images, images.FromFile(images.LivenessFile, path))
			}

			res, err := rt.client.SubmitJob(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&userID, "user-id", "", "user id (generated when empty)")
	flags.StringVar(&jobID, "job-id", "", "job id (generated when empty)")
	flags.IntVar(&jobType, "job-type", int(domain.JobTypeCompareSelfieToID), "job type: 1, 2, 4, 5, 6 or 8")
	flags.StringVar(&selfie, "selfie", "", "selfie image file")
	flags.StringVar(&idCard, "id-card", "", "id card front image file")
	flags.StringVar(&idBack, "id-card-back", "", "id card back image file")
	flags.StringSliceVar(&liveness, "liveness", nil, "liveness image files")
	flags.StringToStringVar(&idInfo, "id-info", nil, "id info field, e.g. --id-info country=NG")
	flags.StringVar(&callbackURL, "job-callback-url", "", "callback URL for this job only")
	flags.BoolVar(&opts.ReturnJobStatus, "return-job-status", false, "wait for the job to complete")
	flags.BoolVar(&opts.ReturnHistory, "return-history", false, "include the job history")
	flags.BoolVar(&opts.ReturnImages, "return-images", false, "include image links")
	flags.BoolVar(&opts.UseValidationAPI, "live-schema", false, "validate id info against the live schema")
	return cmd
}

func statusCmd() *cobra.Command {
	var (
		userID, jobID string
		history, imgs bool
		wait          bool
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query the status of a job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			var status *webapi.JobStatus
			if wait {
				status, err = rt.client.PollJobStatus(cmd.Context(), webapi.PollRequest{
					UserID:        domain.UserID(userID),
					JobID:         domain.JobID(jobID),
					ReturnHistory: history,
					ReturnImages:  imgs,
				})
			} else {
				status, err = rt.client.GetJobStatus(cmd.Context(), domain.UserID(userID), domain.JobID(jobID), history, imgs)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, status.Raw)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&userID, "user-id", "", "user id of the job")
	flags.StringVar(&jobID, "job-id", "", "job id")
	flags.BoolVar(&history, "history", false, "include the job history")
	flags.BoolVar(&imgs, "images", false, "include image links")
	flags.BoolVar(&wait, "wait", false, "poll until the job completes")
	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("job-id")
	return cmd
}

func verifyCmd() *cobra.Command {
	var req webapi.DocumentRequest
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify an identity document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			res, err := rt.client.VerifyDocument(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd, res.Raw)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&req.Country, "country", "", "issuing country, e.g. NG")
	flags.StringVar(&req.IDType, "id-type", "", "document type, e.g. BVN")
	flags.StringVar(&req.IDNumber, "id-number", "", "document number")
	flags.StringVar(&req.FirstName, "first-name", "", "first name")
	flags.StringVar(&req.MiddleName, "middle-name", "", "middle name")
	flags.StringVar(&req.LastName, "last-name", "", "last name")
	flags.StringVar(&req.DOB, "dob", "", "date of birth, YYYY-MM-DD")
	flags.StringVar(&req.PhoneNumber, "phone-number", "", "phone number")
	flags.BoolVar(&req.UseLiveSchema, "live-schema", false, "validate against the live schema")
	return cmd
}

func toAny(fields map[string]string) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
