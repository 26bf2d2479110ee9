package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"entityvault/internal/codec"
	"entityvault/internal/repository"
	"entityvault/internal/service"
)

func usersCmd(configPath *string) *cobra.Command {
	c := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}

	c.AddCommand(usersAddCmd(configPath))
	c.AddCommand(usersGetCmd(configPath))
	c.AddCommand(usersListCmd(configPath))
	c.AddCommand(usersRmCmd(configPath))
	c.AddCommand(usersImportCmd(configPath))
	return c
}

// withUsers opens the app, builds a UserService over it and runs fn.
func withUsers(ctx context.Context, configPath string, fn func(*service.UserService) error) error {
	a, err := openApp(ctx, configPath, false)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	svc := service.NewUserService(a.users, nil, service.UserServiceConfig{
		CheckEmailUniqueness: a.cfg.Users.CheckEmailUniqueness,
		BcryptCost:           a.cfg.Users.BcryptCost,
		Logger:               a.logger,
	})
	return fn(svc)
}

func usersAddCmd(configPath *string) *cobra.Command {
	var in service.RegisterInput

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withUsers(cmd.Context(), *configPath, func(svc *service.UserService) error {
				u, err := svc.Register(cmd.Context(), in)
				if err != nil {
					return err
				}
				dto, err := svc.DTO(u)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), dto)
			})
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "password (8-72 bytes)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func usersGetCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUsers(cmd.Context(), *configPath, func(svc *service.UserService) error {
				u, err := svc.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				dto, err := svc.DTO(u)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), dto)
			})
		},
	}
}

func usersListCmd(configPath *string) *cobra.Command {
	var (
		limit, offset int
		output        string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users ordered by id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var page repository.Page
			if cmd.Flags().Changed("limit") {
				page.Limit = &limit
			}
			if cmd.Flags().Changed("offset") {
				page.Offset = &offset
			}

			return withUsers(cmd.Context(), *configPath, func(svc *service.UserService) error {
				users, err := svc.List(cmd.Context(), page)
				if err != nil {
					return err
				}
				if output != "text" {
					c, err := codec.ForFormat(output)
					if err != nil {
						return err
					}
					dtos, err := svc.DTOs(users)
					if err != nil {
						return err
					}
					return c.Encode(cmd.OutOrStdout(), dtos)
				}
				if len(users) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "(no users found)")
					return nil
				}
				for _, u := range users {
					fmt.Fprintf(cmd.OutOrStdout(), "- %s  %s <%s>\n", u.ID().Value(), u.Name().Value(), u.Email().Value())
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of users")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of users to skip")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json or yaml")
	return cmd
}

func usersRmCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a user and the organizations they own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUsers(cmd.Context(), *configPath, func(svc *service.UserService) error {
				if err := svc.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func usersImportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Register every user listed in a JSON or YAML file",
		Long:  "Register every user listed in a JSON or YAML file of {name, email, password} entries. Import stops at the first rejected entry.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := codec.ForPath(args[0])
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			var inputs []service.RegisterInput
			if err := c.Decode(f, &inputs); err != nil {
				return err
			}

			return withUsers(cmd.Context(), *configPath, func(svc *service.UserService) error {
				for i, in := range inputs {
					u, err := svc.Register(cmd.Context(), in)
					if err != nil {
						return fmt.Errorf("entry %d (%s): %w", i, in.Email, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "- %s  %s\n", u.ID().Value(), u.Email().Value())
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d user(s)\n", len(inputs))
				return nil
			})
		},
	}
}

func printJSON(w io.Writer, v any) error {
	return codec.NewJSONCodec().Encode(w, v)
}
