package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tabx/internal/services"
	"github.com/desertthunder/tabx/internal/shared"
)

type profiler interface {
	UserProfile(ctx context.Context) (*services.SpotifyUser, error)
}

type launcher interface {
	Launch(ctx context.Context) error
}

// Diagnose checks each link of the chain a sync depends on, in order, and stops at the first failure.
func (r *Runner) Diagnose(ctx context.Context, cmd *cli.Command) error {
	r.writePlainHeader("tabx diagnose")

	check := func(name string, err error) error {
		if err != nil {
			r.writePlain("✗ %s: %v\n", name, err)
			return err
		}
		return nil
	}

	if err := check("Config", r.config.Validate()); err != nil {
		return err
	}
	r.writePlain("✓ Config valid (%s)\n", r.configPath)

	if err := check("Spotify", r.requireSpotify()); err != nil {
		return err
	}
	if p, ok := r.spotify.(profiler); ok {
		user, err := p.UserProfile(ctx)
		if err := check("Spotify profile", err); err != nil {
			return err
		}
		r.writePlain("✓ Spotify user: %s\n", user.DisplayName)
	}

	playlistID := cmd.String("playlist")
	if playlistID == "" {
		playlistID = r.config.Sync.PlaylistID
	}
	if playlistID != "" {
		playlist, err := r.spotify.GetPlaylist(ctx, playlistID)
		if err := check("Spotify playlist", err); err != nil {
			return err
		}
		r.writePlain("✓ Spotify playlist: %s (%d tracks)\n", playlist.Name, playlist.TrackCount)
	} else {
		playlists, err := r.spotify.GetPlaylists(ctx)
		if err := check("Spotify playlists", err); err != nil {
			return err
		}
		r.writePlain("✓ Spotify playlists: %d\n", len(playlists))
	}
	r.saveTokens()

	driver := r.newDriver(r.config, r.logger)
	defer driver.Close()

	if l, ok := driver.(launcher); ok {
		if err := check("Browser", l.Launch(ctx)); err != nil {
			return fmt.Errorf("%w: %w", shared.ErrDriver, err)
		}
		r.writePlain("✓ Browser launched (headless=%t)\n", r.config.Browser.Headless)
	}

	if err := check(driver.Name()+" login", driver.Authenticate(ctx, r.config.Credentials.UltimateGuitar.Map())); err != nil {
		return err
	}
	r.writePlain("✓ %s login\n", driver.Name())

	lister, ok := driver.(services.PlaylistLister)
	if !ok {
		return nil
	}
	playlists, err := lister.Playlists(ctx)
	if err := check(driver.Name()+" playlists", err); err != nil {
		return err
	}
	r.writePlain("✓ %s playlists: %d\n", driver.Name(), len(playlists))
	for i, p := range playlists[:min(3, len(playlists))] {
		r.writePlain("   %d. %s (%d tabs)\n", i+1, p.Name, p.TrackCount)
	}

	r.writePlainln("All checks passed.")
	return nil
}
